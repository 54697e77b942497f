package api

import "github.com/flemzord/tgbridge/internal/tlrpc"

// LogStreamFile writes TDLib's internal log to a rotated file.
type LogStreamFile struct {
	Path           string
	MaxFileSize    int64
	RedirectStderr bool
}

func (*LogStreamFile) TypeName() string { return "logStreamFile" }

func (s *LogStreamFile) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.String("path", &s.Path),
		tlrpc.Int64("max_file_size", &s.MaxFileSize),
		tlrpc.Bool("redirect_stderr", &s.RedirectStderr, tlrpc.Optional()),
	}
}

// SetLogStream selects where TDLib logs. It can be executed synchronously.
type SetLogStream struct {
	LogStream *LogStreamFile
}

func (*SetLogStream) TypeName() string { return "setLogStream" }

func (r *SetLogStream) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Record("log_stream", &r.LogStream)}
}
