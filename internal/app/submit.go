package app

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"foxshelf/pkg/domain"
)

// FileUpload is one file received with a draft.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Draft is a book submission as entered, prior to validation. Price arrives
// as the raw entered string so that non-numeric input is reported as a
// validation failure rather than a decode error.
type Draft struct {
	Title       string
	Description string
	Price       string
	PayPalLink  string
	Cover       *FileUpload
	PDF         *FileUpload
}

// validateDraft checks the draft fields in a fixed order and reports the
// first failure.
func validateDraft(d Draft) (float64, error) {
	if strings.TrimSpace(d.Title) == "" {
		return 0, validationf("Please enter a book title.")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(d.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, validationf("Please enter a valid price greater than zero.")
	}
	if d.Cover == nil || len(d.Cover.Data) == 0 {
		return 0, validationf("Please upload a cover image.")
	}
	if d.PDF == nil || len(d.PDF.Data) == 0 || d.PDF.ContentType != "application/pdf" {
		return 0, validationf("Please upload the book as a PDF file.")
	}
	if !strings.HasPrefix(strings.TrimSpace(d.PayPalLink), "https://") {
		return 0, validationf("Please enter a valid PayPal link (must start with https://).")
	}
	return price, nil
}

// SubmitBook validates a draft, stores its files, and publishes the book at
// the head of the catalog. Nothing is stored when validation fails.
func (a *App) SubmitBook(ctx context.Context, d Draft) (domain.Book, error) {
	price, err := validateDraft(d)
	if err != nil {
		return domain.Book{}, err
	}

	pages, err := pdfPageCount(d.PDF.Data)
	if err != nil {
		return domain.Book{}, validationf("The uploaded PDF could not be read. Please check the file and try again.")
	}

	bookID := uuid.NewString()
	coverKey := path.Join(bookID, "cover"+safeExt(d.Cover.Filename, ".jpg"))
	pdfKey := path.Join(bookID, "book.pdf")

	coverType := d.Cover.ContentType
	if coverType == "" {
		coverType = "application/octet-stream"
	}
	if err := a.blobs.Put(ctx, coverKey, bytes.NewReader(d.Cover.Data), int64(len(d.Cover.Data)), coverType); err != nil {
		return domain.Book{}, fmt.Errorf("store cover: %w", err)
	}
	if err := a.blobs.Put(ctx, pdfKey, bytes.NewReader(d.PDF.Data), int64(len(d.PDF.Data)), "application/pdf"); err != nil {
		_ = a.blobs.Delete(ctx, coverKey)
		return domain.Book{}, fmt.Errorf("store pdf: %w", err)
	}

	coverURL, err := a.blobs.URL(ctx, coverKey)
	if err != nil {
		return domain.Book{}, fmt.Errorf("cover url: %w", err)
	}
	pdfURL, err := a.blobs.URL(ctx, pdfKey)
	if err != nil {
		return domain.Book{}, fmt.Errorf("pdf url: %w", err)
	}

	book := domain.Book{
		ID:            bookID,
		Title:         strings.TrimSpace(d.Title),
		Author:        a.authorName,
		Description:   strings.TrimSpace(d.Description),
		Price:         price,
		CoverImageURL: coverURL,
		PDFURL:        pdfURL,
		PayPalLink:    strings.TrimSpace(d.PayPalLink),
		PageCount:     pages,
	}
	a.catalog.Add(book)
	return book, nil
}

// pdfPageCount parses the uploaded bytes as a PDF and returns its page count.
func pdfPageCount(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	n := r.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return n, nil
}

// safeExt extracts a usable extension from an uploaded filename.
func safeExt(name, fallback string) string {
	ext := strings.ToLower(path.Ext(path.Base(name)))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	return fallback
}
