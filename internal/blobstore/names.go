package blobstore

// SanitizeName maps a bucket name to a form safe to use as a file or object
// name. Letters, digits, dot, dash, and underscore pass through; every other
// rune becomes an underscore. The result is never empty.
//
// Path-constrained backends (disk, s3) store under the sanitized name, so a
// bucket created with an unsafe name reloads after restart under its
// sanitized form. Key-value backends keep names exact and do not call this.
func SanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == '.' || r == '-' || r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
