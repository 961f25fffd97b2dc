package domain

// FileEntry maps an administrator-chosen key to a shareable file. Path
// is an opaque platform file reference, re-sent as-is on request.
type FileEntry struct {
	Key  string `json:"-"`
	Path string `json:"path"`
	Desc string `json:"desc"`
}
