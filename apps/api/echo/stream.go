package echoapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// authn/z stays external; origin checks belong to the fronting proxy.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamApi struct {
	hub Hub
}

func registerStreamAPI(g *echo.Group, hub Hub) {
	api := streamApi{hub: hub}
	g.GET("/labs/:labID/stream", api.stream)
}

// stream upgrades the connection and keeps it subscribed to the lab's
// events until the client goes away. Inbound messages are drained and
// discarded; the stream is write-only.
func (api *streamApi) stream(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}
	defer conn.Close()

	leave := api.hub.Join(ctx.Param("labID"), conn)
	defer leave()

	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}
