package documents

import (
	"strconv"
	"time"
)

// DocumentResponse is the wire form of a document. FileSize is a decimal
// string so byte counts above 2^53 survive JSON clients.
type DocumentResponse struct {
	ID                 string         `json:"id"`
	ExternalDocumentID string         `json:"externalDocumentId"`
	SessionToken       *string        `json:"sessionToken"`
	Title              string         `json:"title"`
	Filename           string         `json:"filename"`
	FileType           string         `json:"fileType"`
	FileSize           string         `json:"fileSize"`
	Author             string         `json:"author"`
	OwnerID            string         `json:"ownerId"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	Owner              *OwnerResponse `json:"owner,omitempty"`
}

type OwnerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ViewerSessionResponse struct {
	SessionToken       string `json:"sessionToken"`
	ExternalDocumentID string `json:"externalDocumentId"`
	ViewerURL          string `json:"viewerUrl,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                 doc.ID,
		ExternalDocumentID: doc.ExternalDocumentID,
		Title:              doc.Title,
		Filename:           doc.Filename,
		FileType:           doc.FileType,
		FileSize:           strconv.FormatInt(doc.FileSize, 10),
		Author:             doc.Author,
		OwnerID:            doc.OwnerID,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
	if doc.SessionToken != "" {
		token := doc.SessionToken
		resp.SessionToken = &token
	}
	if doc.Owner != nil {
		resp.Owner = &OwnerResponse{ID: doc.Owner.ID, Name: doc.Owner.Name, Email: doc.Owner.Email}
	}
	return resp
}

func toResponses(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	return out
}
