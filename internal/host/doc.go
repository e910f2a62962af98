// Package host provides the persistence collaborators that receive exported
// artifacts (workbooks, label pages) from the core.
package host
