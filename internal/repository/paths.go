package repository

import (
	"path"
	"strings"

	"github.com/pateepk/agilesite-ci/internal/hashing"
	"github.com/pateepk/agilesite-ci/internal/model"
)

const (
	// Ext is the extension of every object file.
	Ext = ".xml"

	// GlobalSegment stands in for the site of global objects of site-scoped types.
	GlobalSegment = "@global"

	// BatchFileName holds every object of a by-type type.
	BatchFileName = "@objects" + Ext

	suffixLen = 10
)

// SafeName converts a code name into a file-system safe segment. Names that
// change beyond lower-casing get a hash suffix so distinct names never collide.
func SafeName(name string) string {
	lowered := strings.ToLower(name)

	var b strings.Builder
	for i, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	safe := b.String()
	if safe == lowered && safe != "" {
		return safe
	}
	return safe + "@" + hashing.Sum([]byte(name)).Short(suffixLen)
}

// TypeDir returns the directory holding objects of info.
func TypeDir(info *model.TypeInfo) string {
	return SafeName(info.Name)
}

// ObjectPath returns the slash-separated path of obj relative to the root.
func ObjectPath(info *model.TypeInfo, obj *model.Object) string {
	if info.ByType {
		return BatchPath(info)
	}

	segs := []string{TypeDir(info)}
	if info.SiteScoped {
		segs = append(segs, siteSegment(obj.Site))
	}
	if info.ParentType != "" && obj.Parent != "" {
		segs = append(segs, SafeName(obj.Parent))
	}
	segs = append(segs, SafeName(obj.CodeName)+Ext)
	return path.Join(segs...)
}

// BatchPath returns the batch file path of a by-type type.
func BatchPath(info *model.TypeInfo) string {
	return path.Join(TypeDir(info), BatchFileName)
}

func siteSegment(site string) string {
	if site == "" {
		return GlobalSegment
	}
	return SafeName(site)
}
