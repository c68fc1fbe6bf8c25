package endpoint

import (
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
)

// GetServerInfo returns the handler that reports LAN addresses for the given
// port so other devices on the network can reach the app.
//
// @Summary      Server addresses
// @Tags         System
// @Produce      json
// @Success      200 {object} util.APIResponse{data=util.ServerInfo} "Server info"
// @Failure      500 {object} util.APIResponse "Interfaces unavailable"
// @Router       /api/get-server-info [get]
func GetServerInfo(port uint16) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := util.BuildServerInfo(port)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgQueryFailed), Err: err})
			return
		}
		util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: info})
	}
}
