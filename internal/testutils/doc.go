// Package testutils provides helpers shared by the test suites of the
// gateway packages. It must only be imported from _test.go files.
package testutils
