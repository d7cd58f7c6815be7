// Package buildinfo carries release metadata set with -ldflags -X at link
// time. Development builds leave it empty and rely on the embedded module
// build information instead.
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)
