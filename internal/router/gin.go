package router

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const jsonContentType = "application/json; charset=utf-8"

// Handle dispatches a gin request through the table. The raw (escaped) path is
// used so placeholder values reach handlers exactly as the client sent them.
func (t *Table) Handle(c *gin.Context) {
	resp := t.Dispatch(c.Request.Method, c.Request.URL.EscapedPath(), c.Request.Body)

	if resp.Body == nil {
		c.Status(resp.Status)
		// Flush now so gin does not append its default 404 text
		c.Writer.WriteHeaderNow()
		return
	}

	writeJSON(c, resp.Status, resp.Body)
}

// Register mounts the table on the engine so that every method and path,
// including methods gin does not know, reaches the dispatcher.
func (t *Table) Register(engine *gin.Engine) {
	engine.Any("/*path", t.Handle)
	engine.NoRoute(t.Handle)
}

// writeJSON renders body without HTML escaping and without the trailing
// newline json.Encoder appends, so "&", "<" and ">" go out as sent.
func writeJSON(c *gin.Context, status int, body any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		c.Writer.WriteHeaderNow()
		return
	}

	c.Data(status, jsonContentType, bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}
