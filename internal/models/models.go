package models

import (
	"path/filepath"
	"strings"
)

// ImageFile represents one image discovered under the scan root
type ImageFile struct {
	Path string `json:"path" yaml:"path"` // absolute path
	Dir  string `json:"dir" yaml:"dir"`
	Name string `json:"name" yaml:"name"`
	Stem string `json:"stem" yaml:"stem"`
	Ext  string `json:"ext" yaml:"ext"` // without the dot, original case
	Size int64  `json:"size" yaml:"size"`
}

// NewImageFile builds an ImageFile from a path and its size
func NewImageFile(path string, size int64) ImageFile {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	return ImageFile{
		Path: path,
		Dir:  filepath.Dir(path),
		Name: name,
		Stem: strings.TrimSuffix(name, ext),
		Ext:  strings.TrimPrefix(ext, "."),
		Size: size,
	}
}

// Format returns the lower-cased extension, e.g. "jpg"
func (f ImageFile) Format() string {
	return strings.ToLower(f.Ext)
}
