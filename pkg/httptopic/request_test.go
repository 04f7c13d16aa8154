package httptopic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRequest_ValidGetWithQueryAndHeaders(t *testing.T) {
	raw := "GET /memory?start=0x4000&size=16 HTTP/1.1\r\nHost: localhost\r\nAccept: text/html\r\n\r\n"
	req := parseRequest(raw)

	assert.True(t, req.Valid)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/memory", req.Path)
	assert.Equal(t, "0x4000", req.QueryParams["start"])
	assert.Equal(t, "16", req.QueryParams["size"])
	assert.Equal(t, "text/html", req.Headers["accept"])
}

func TestParseRequest_RejectsUnsupportedMethod(t *testing.T) {
	req := parseRequest("POST / HTTP/1.1\r\n\r\n")
	assert.False(t, req.Valid)
}

func TestParseRequest_RejectsMissingRequestLine(t *testing.T) {
	req := parseRequest("garbage without crlf")
	assert.False(t, req.Valid)
}

func TestParseRequest_HeadersLowercasedAndTrimmed(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nACCEPT:   application/json\r\n\r\n"
	req := parseRequest(raw)
	assert.Equal(t, "application/json", req.Headers["accept"])
}

func TestQueryUint_HexOctalAndDecimal(t *testing.T) {
	params := map[string]string{"hex": "0x1F", "oct": "037", "dec": "31", "bad": "oops"}
	assert.Equal(t, uint64(31), queryUint(params, "hex", 0))
	assert.Equal(t, uint64(31), queryUint(params, "oct", 0))
	assert.Equal(t, uint64(31), queryUint(params, "dec", 0))
	assert.Equal(t, uint64(99), queryUint(params, "bad", 99))
	assert.Equal(t, uint64(7), queryUint(params, "missing", 7))
}

func TestQueryInt_DefaultsOnParseFailure(t *testing.T) {
	params := map[string]string{"n": "42", "bad": "x"}
	assert.Equal(t, 42, queryInt(params, "n", 0))
	assert.Equal(t, 5, queryInt(params, "bad", 5))
}
