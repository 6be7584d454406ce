// Package naming derives new image filenames from model descriptions.
//
// A description is sanitized into a Keyword, combined with the original stem
// and a prefix according to a Scheme, and checked against the same Scheme to
// recognise files that an earlier run already renamed. Everything here is
// pure string manipulation; disk access lives in the renamer package.
package naming
