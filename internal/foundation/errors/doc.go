// Package errors classifies the failures sitesmith reports.
//
// Every error that reaches a user carries a Category that decides how it is
// handled: content problems (front matter, composition, missing references)
// are logged per template and never abort a build, while configuration and
// file system failures stop it. Errors are assembled with a small builder:
//
//	err := errors.WrapError(readErr, errors.CategoryFileSystem, "read template").
//		WithContext("path", "src/pages/index.html").
//		Build()
package errors
