// Package repository maps configuration objects onto a file-system tree and
// back.
//
// Layout:
//
//	<type>/<codename>.xml                      global object
//	<type>/<site|@global>/<codename>.xml       site-scoped type
//	<type>/.../<parent>/<codename>.xml         object with a parent
//	<type>/@objects.xml                        by-type batch file
//
// Serialization is canonical: storing the same object twice yields identical
// bytes, which is what makes tree comparison meaningful.
package repository
