package log

import "log/slog"

func Bridge(name string) slog.Attr {
	return slog.String("bridge", name)
}

func Path[T ~string](path T) slog.Attr {
	return slog.String("path", string(path))
}

func ChatID(id string) slog.Attr {
	return slog.String("chat_id", id)
}

func SenderID(id string) slog.Attr {
	return slog.String("sender_id", id)
}

func UID(uid string) slog.Attr {
	return slog.String("uid", uid)
}

func Method(name string) slog.Attr {
	return slog.String("method", name)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
