package logger

// Standard field keys, so warnings from different phases can be grepped and
// aggregated the same way.
const (
	KeyPath   = "path"
	KeyKind   = "kind"
	KeyName   = "name"
	KeyOldID  = "old_id"
	KeyNewID  = "new_id"
	KeyUID    = "uid"
	KeyGID    = "gid"
	KeyLine   = "line"
	KeyFile   = "file"
	KeyError  = "error"
	KeyMode   = "mode"
	KeyRunID  = "run_id"
	KeyCount  = "count"
	KeyTarget = "target"
)
