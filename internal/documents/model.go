package documents

import "time"

// Document is the local metadata record for a file held by the rendering
// service. OwnerID and ExternalDocumentID never change after creation.
type Document struct {
	ID                 string
	OwnerID            string
	ExternalDocumentID string
	SessionToken       string
	Title              string
	Filename           string
	FileType           string
	FileSize           int64
	Author             string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Owner is filled by reads that can join the users table.
	Owner *Owner
}

type Owner struct {
	ID    string
	Name  string
	Email string
}
