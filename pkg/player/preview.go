// Copyright 2024 The Moviecore Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package player

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// PreviewHandler opens a websocket that streams every Tick of p's live
// preview feed as JSON, one message per tick, for a headless editor
// shell's preview pane. Grounded on web.Logs, which upgrades a request
// and relays a log.Logger feed the same way.
func PreviewHandler(p *Player) http.Handler {
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer c.Close()

		feed, cancel := p.Subscribe()
		defer cancel()

		for tick := range feed {
			msg, err := json.Marshal(tick)
			if err != nil {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	})
}
