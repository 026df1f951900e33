package app

import (
	"log"

	"noveldesk/internal/config"
	"noveldesk/internal/identity"
	"noveldesk/internal/metrics"
	"noveldesk/internal/novel"
)

// DocumentStore is the persistence boundary: one encrypted document tree per
// verified identity.
type DocumentStore interface {
	Load(id identity.Identity) (*novel.DocumentTree, error)
	Save(id identity.Identity, tree *novel.DocumentTree) error
}

type Service struct {
	cfg     config.Config
	store   DocumentStore
	metrics *metrics.Collector
}

func New(cfg config.Config, store DocumentStore, collector *metrics.Collector) *Service {
	return &Service{cfg: cfg, store: store, metrics: collector}
}

// VerifyCredential re-validates the cookie pair on every call. There is no
// session cache, so secret rotation or tampering takes effect immediately.
func (s *Service) VerifyCredential(payloadCookie, signatureCookie string) (identity.Identity, error) {
	id, err := identity.Verify(payloadCookie, signatureCookie, []byte(s.cfg.AuthSecret))
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAuthFailure()
		}
		return identity.Identity{}, err
	}
	return id, nil
}

func (s *Service) LoadDocument(id identity.Identity) (*novel.DocumentTree, error) {
	tree, err := s.store.Load(id)
	if err != nil {
		log.Printf("load document for %s failed: %v", id.Email, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordDocumentLoad()
	}
	return tree, nil
}

// SaveDocument validates the raw payload shape before anything touches the
// store, so a malformed client state can never corrupt the record.
func (s *Service) SaveDocument(id identity.Identity, raw []byte) error {
	tree, err := novel.Parse(raw)
	if err != nil {
		return err
	}
	novel.Normalize(tree)
	if err := s.store.Save(id, tree); err != nil {
		log.Printf("save document for %s failed: %v", id.Email, err)
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordDocumentSave()
	}
	return nil
}
