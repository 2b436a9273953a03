package logger

import "log/slog"

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// MerchantID records the merchant identifier under the key "merchant_id".
// If id is nil, it returns an empty Attr.
func MerchantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("merchant_id", id)
}

// KeyID records the activation key identifier under the key "key_id".
// If id is nil, it returns an empty Attr.
func KeyID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("key_id", id)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// EventType records the webhook event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
