package api

import "github.com/tidwall/gjson"

// unwrap peels the backend response envelope: an object carrying "data" yields
// its data member, else one carrying "result" yields that, else the body is
// returned as-is. The checks are ordered; "data" wins when both are present.
func unwrap(body []byte) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return body
	}
	if data := root.Get("data"); data.Exists() {
		return []byte(data.Raw)
	}
	if result := root.Get("result"); result.Exists() {
		return []byte(result.Raw)
	}
	return body
}
