package service

import (
	"github.com/xxxsen/pdfchat/internal/config"
	"github.com/xxxsen/pdfchat/internal/model"
)

// DefaultDemoDocument is offered when no demo documents are configured.
var DefaultDemoDocument = config.DemoDocument{
	PdfID:   "bitcoin",
	PdfName: "Bitcoin: A Peer-to-Peer Electronic Cash System",
	PdfURL:  "https://bitcoin.org/bitcoin.pdf",
}

// DemoCatalog lists the preloaded documents anonymous visitors may chat with.
type DemoCatalog struct {
	docs []model.Document
}

func NewDemoCatalog(items []config.DemoDocument) *DemoCatalog {
	if len(items) == 0 {
		items = []config.DemoDocument{DefaultDemoDocument}
	}
	docs := make([]model.Document, 0, len(items))
	for _, item := range items {
		if item.PdfID == "" {
			continue
		}
		docs = append(docs, model.Document{
			PdfID:           item.PdfID,
			PdfName:         item.PdfName,
			PdfURL:          item.PdfURL,
			IngestionStatus: model.IngestionSuccess,
		})
	}
	return &DemoCatalog{docs: docs}
}

func (c *DemoCatalog) Documents() []model.Document {
	return append([]model.Document(nil), c.docs...)
}

func (c *DemoCatalog) Get(pdfID string) (model.Document, bool) {
	for _, doc := range c.docs {
		if doc.PdfID == pdfID {
			return doc, true
		}
	}
	return model.Document{}, false
}
