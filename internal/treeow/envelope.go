package treeow

import (
	"fmt"
	"strconv"
	"strings"
)

// checkEnvelope validates a decoded response body against the three envelope
// shapes the vendor uses:
//
//	{"meta":   {"code": 200, "message": "..."}, ...}
//	{"result": {"code": 200, "msg": "..."}, ...}
//	{"code": 200, "msg": "...", ...}
//
// Success requires the recognized shape's code to equal 200 and its message
// to carry no "error" marker. A recognized shape that fails yields a
// *ServerError carrying the vendor's message. A body matching no shape
// fails closed with ErrProtocol.
func checkEnvelope(body map[string]any) error {
	if meta, ok := body["meta"].(map[string]any); ok {
		return checkShape(meta, "message")
	}
	if result, ok := body["result"].(map[string]any); ok {
		return checkShape(result, "msg")
	}
	if _, ok := body["code"]; ok {
		return checkShape(body, "msg")
	}
	return fmt.Errorf("%w: unrecognized response envelope", ErrProtocol)
}

func checkShape(shape map[string]any, msgKey string) error {
	code, ok := asInt(shape["code"])
	if !ok {
		return fmt.Errorf("%w: envelope code is not numeric", ErrProtocol)
	}
	msg, _ := shape[msgKey].(string)
	if code != 200 || strings.Contains(msg, "error") {
		return &ServerError{Code: code, Message: msg}
	}
	return nil
}

// envelopeMessage extracts the human-readable message from whichever
// envelope shape is present. Used to annotate command rejections.
func envelopeMessage(body map[string]any) string {
	if meta, ok := body["meta"].(map[string]any); ok {
		if s, ok := meta["message"].(string); ok {
			return s
		}
	}
	if result, ok := body["result"].(map[string]any); ok {
		if s, ok := result["msg"].(string); ok {
			return s
		}
	}
	if s, ok := body["msg"].(string); ok {
		return s
	}
	return "unknown error"
}

// asInt tolerates the vendor sending code fields as JSON numbers or as
// numeric strings.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
