package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// sign attaches the Bybit v5 authentication headers. payload is the sorted
// query string for GETs or the raw JSON body for POSTs; the signature covers
// timestamp + api key + recv window + payload.
func (c *Client) sign(req *http.Request, payload string) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + c.apiKey + recvWindow + payload))

	req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	req.Header.Set("X-BAPI-SIGN", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
}
