package http

import (
	"doc-registry/internal/hashing"
	"doc-registry/internal/model"
	"doc-registry/internal/ports/http/middleware/auth"
	"doc-registry/internal/registry"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// max accepted request body, raw content included
const maxBodySize = 10 << 20

type backupRequest struct {
	// hex encoded digest; Content is hashed with SHA-256 when Hash is empty
	Hash    string `json:"hash"`
	Content []byte `json:"content"`

	CID            string   `json:"cid"`
	DocType        string   `json:"docType"`
	Metadata       string   `json:"metadata"`
	Expiry         *uint64  `json:"expiry"`
	Size           uint64   `json:"size"`
	Location       string   `json:"location"`
	Currency       string   `json:"currency"`
	DocName        string   `json:"docName"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	AccessLevel    uint     `json:"accessLevel"`
	EncryptionType string   `json:"encryptionType"`
	Verifier       *string  `json:"verifier"`
	Signature      []byte   `json:"signature"`
	Proof          []byte   `json:"proof"`
}

type updateRequest struct {
	Hash     string `json:"hash"`
	CID      string `json:"cid"`
	Metadata string `json:"metadata"`
	Reason   string `json:"reason"`
}

type backupResponse struct {
	DocID uint64 `json:"docID"`
}

type documentResponse struct {
	DocID          uint64   `json:"docID"`
	Hash           string   `json:"hash"`
	CID            string   `json:"cid"`
	Timestamp      uint64   `json:"timestamp"`
	DocType        string   `json:"docType"`
	Metadata       string   `json:"metadata"`
	Owner          string   `json:"owner"`
	Status         bool     `json:"status"`
	Version        uint64   `json:"version"`
	Expiry         *uint64  `json:"expiry,omitempty"`
	Size           uint64   `json:"size"`
	Location       string   `json:"location"`
	Currency       string   `json:"currency"`
	DocName        string   `json:"docName"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	AccessLevel    uint     `json:"accessLevel"`
	EncryptionType string   `json:"encryptionType"`
	Verifier       *string  `json:"verifier,omitempty"`
	Signature      []byte   `json:"signature,omitempty"`
	Proof          []byte   `json:"proof,omitempty"`
}

type updateResponse struct {
	Timestamp uint64 `json:"timestamp"`
	Updater   string `json:"updater"`
	OldHash   string `json:"oldHash"`
	NewHash   string `json:"newHash"`
	Reason    string `json:"reason"`
}

type countResponse struct {
	Count uint64 `json:"count"`
}

type existenceResponse struct {
	Hash   string `json:"hash"`
	Exists bool   `json:"exists"`
}

func (d *documentResponse) assign(docID uint64, doc model.Document) {
	d.DocID = docID
	d.Hash = doc.Hash.String()
	d.CID = doc.CID
	d.Timestamp = doc.Timestamp
	d.DocType = doc.DocType.String()
	d.Metadata = doc.Metadata
	d.Owner = doc.Owner.String()
	d.Status = doc.Status
	d.Version = doc.Version
	d.Expiry = doc.Expiry
	d.Size = doc.Size
	d.Location = doc.Location
	d.Currency = string(doc.Currency)
	d.DocName = doc.DocName
	d.Description = doc.Description
	d.Category = doc.Category
	d.Tags = doc.Tags
	d.AccessLevel = doc.AccessLevel
	d.EncryptionType = string(doc.EncryptionType)
	if doc.Verifier != nil {
		verifier := doc.Verifier.String()
		d.Verifier = &verifier
	}
	d.Signature = doc.Signature
	d.Proof = doc.Proof
}

func (ser *Server) backupDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		ser.unauthenticated(w)
		return
	}

	req, err := ser.readBackupParams(w, r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	docID, err := ser.registry.BackupDocument(r.Context(), caller, req)
	ser.metrics.IncrementOperation("backupDocument", resultOf(err))
	if err != nil {
		ser.fail(w, "backupDocument", err)
		return
	}

	ser.logger.Info("document backed up over http", zap.String("owner", caller.String()), zap.Uint64("docID", docID))
	ser.respond(w, http.StatusCreated, backupResponse{DocID: docID})
}

func (ser *Server) readBackupParams(w http.ResponseWriter, r *http.Request) (model.BackupRequest, error) {
	var body backupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		return model.BackupRequest{}, errors.New("failed to decode the request: " + err.Error())
	}

	if body.Hash != "" && body.Content != nil {
		return model.BackupRequest{}, errors.New("only one of hash and content can be given")
	}

	// a missing or malformed hash is left empty and rejected by the registry
	// in its own check order
	var hash model.Hash
	if body.Content != nil {
		hash = hashing.Digest(body.Content)
	} else {
		hash = parseHash(body.Hash)
	}

	req := model.BackupRequest{
		Hash:           hash,
		CID:            body.CID,
		DocType:        model.DocType(body.DocType),
		Metadata:       body.Metadata,
		Expiry:         body.Expiry,
		Size:           body.Size,
		Location:       body.Location,
		Currency:       model.Currency(body.Currency),
		DocName:        body.DocName,
		Description:    body.Description,
		Category:       body.Category,
		Tags:           body.Tags,
		AccessLevel:    body.AccessLevel,
		EncryptionType: model.EncryptionType(body.EncryptionType),
		Signature:      body.Signature,
		Proof:          body.Proof,
	}
	if body.Verifier != nil {
		verifier := model.Account(normalize(*body.Verifier))
		req.Verifier = &verifier
	}
	if body.Content != nil && req.Size == 0 {
		req.Size = uint64(len(body.Content))
	}

	return req, nil
}

func (ser *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		ser.unauthenticated(w)
		return
	}

	docID, err := readDocID(r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	var body updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		ser.badRequest(w, "failed to decode the request: "+err.Error())
		return
	}

	err = ser.registry.UpdateDocument(r.Context(), caller, model.UpdateRequest{
		DocID:    docID,
		Hash:     parseHash(body.Hash),
		CID:      body.CID,
		Metadata: body.Metadata,
		Reason:   body.Reason,
	})
	ser.metrics.IncrementOperation("updateDocument", resultOf(err))
	if err != nil {
		ser.fail(w, "updateDocument", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (ser *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		ser.unauthenticated(w)
		return
	}

	docID, err := readDocID(r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	err = ser.registry.DeleteDocument(r.Context(), caller, docID)
	ser.metrics.IncrementOperation("deleteDocument", resultOf(err))
	if err != nil {
		ser.fail(w, "deleteDocument", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (ser *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	owner, docID, err := readDocKey(r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	doc, ok := ser.registry.GetDocument(owner, docID)
	if !ok {
		ser.notFound(w, "document not found")
		return
	}

	var response documentResponse
	response.assign(docID, doc)
	ser.respond(w, http.StatusOK, response)
}

func (ser *Server) getDocUpdate(w http.ResponseWriter, r *http.Request) {
	owner, docID, err := readDocKey(r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	update, ok := ser.registry.GetDocUpdate(owner, docID)
	if !ok {
		ser.notFound(w, "document update not found")
		return
	}

	ser.respond(w, http.StatusOK, updateResponse{
		Timestamp: update.Timestamp,
		Updater:   update.Updater.String(),
		OldHash:   update.OldHash.String(),
		NewHash:   update.NewHash.String(),
		Reason:    update.Reason,
	})
}

func (ser *Server) getTotalDocCount(w http.ResponseWriter, r *http.Request) {
	ser.respond(w, http.StatusOK, countResponse{Count: ser.registry.GetTotalDocCount()})
}

func (ser *Server) getUserDocCount(w http.ResponseWriter, r *http.Request) {
	account := model.Account(normalize(mux.Vars(r)["account"]))
	ser.respond(w, http.StatusOK, countResponse{Count: ser.registry.GetUserDocCount(account)})
}

func (ser *Server) checkDocExistence(w http.ResponseWriter, r *http.Request) {
	hash, err := model.ParseHash(normalize(mux.Vars(r)["hash"]))
	if err != nil {
		ser.fail(w, "checkDocExistence", registry.ErrInvalidHash)
		return
	}

	ser.respond(w, http.StatusOK, existenceResponse{Hash: hash.String(), Exists: ser.registry.CheckDocExistence(hash)})
}

// parseHash decodes a hex digest; undecodable input yields an empty hash.
func parseHash(raw string) model.Hash {
	hash, err := model.ParseHash(normalize(raw))
	if err != nil {
		return nil
	}
	return hash
}

func readDocID(r *http.Request) (uint64, error) {
	docID, err := strconv.ParseUint(mux.Vars(r)["docID"], 10, 64)
	if err != nil {
		return 0, errors.New("invalid docID: " + err.Error())
	}
	return docID, nil
}

func readDocKey(r *http.Request) (model.Account, uint64, error) {
	owner := model.Account(normalize(mux.Vars(r)["owner"]))
	if owner.IsEmpty() {
		return "", 0, errors.New("owner is missing")
	}

	docID, err := readDocID(r)
	if err != nil {
		return "", 0, err
	}
	return owner, docID, nil
}
