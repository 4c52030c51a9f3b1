// Package storage places downloaded profile PDFs in the download directory.
//
// Artifacts are named {linkedin_id}_{YYYYMMDD_HHMMSS}.pdf. Writes go through
// a temporary file and a rename so a crashed run never leaves a truncated PDF
// under a final name. Browser downloads land in a staging directory first and
// are adopted with Adopt once complete.
package storage
