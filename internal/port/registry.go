package port

import "pdfrag/internal/domain"

// UploadRegistry records the documents uploaded during a session.
type UploadRegistry interface {
	Has(name string) (bool, error)
	Put(upload domain.Upload) error
	List() ([]domain.Upload, error)
	Close() error
}
