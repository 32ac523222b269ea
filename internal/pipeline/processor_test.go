package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
	"github.com/joseph-ayodele/liquidation-ocr/internal/extract"
	"github.com/joseph-ayodele/liquidation-ocr/internal/metrics"
	"github.com/joseph-ayodele/liquidation-ocr/internal/repository"
	"github.com/joseph-ayodele/liquidation-ocr/internal/source"
)

type fakeLoader struct {
	pages    []source.Page
	warnings []string
	err      error
}

func (l *fakeLoader) Pages(context.Context, string) ([]source.Page, []string, error) {
	return l.pages, l.warnings, l.err
}

// fakeSelector answers page by page from a script.
type fakeSelector struct {
	outcomes []entity.EnsembleOutcome
	decoded  int
	encoded  int
	onRun    func()
}

func (s *fakeSelector) next() entity.EnsembleOutcome {
	n := s.decoded + s.encoded - 1
	if s.onRun != nil {
		s.onRun()
	}
	if n < len(s.outcomes) {
		return s.outcomes[n]
	}
	return entity.EnsembleOutcome{}
}

func (s *fakeSelector) Run(context.Context, image.Image) entity.EnsembleOutcome {
	s.decoded++
	return s.next()
}

func (s *fakeSelector) RunEncoded(context.Context, []byte) entity.EnsembleOutcome {
	s.encoded++
	return s.next()
}

func pagesOf(n int) []source.Page {
	pages := make([]source.Page, n)
	for i := range pages {
		pages[i] = source.Page{Index: i, Image: image.NewNRGBA(image.Rect(0, 0, 1, 1))}
	}
	return pages
}

func TestProcessPagesJoinsTextInPageOrder(t *testing.T) {
	sel := &fakeSelector{outcomes: []entity.EnsembleOutcome{
		{BestText: "Importo liquidabile € 10.000,00", BestConfidence: 90, VariantLabel: "gray s2.2 r0", Evaluated: 90},
		{},
		{BestText: "Coniuge Maria Rossi 50%\nFiglio Luca Rossi 1/2", BestConfidence: 97, VariantLabel: "bin k0.96 s2.2 r-1", Evaluated: 8, EarlyStopped: true},
	}}
	pages := pagesOf(3)
	pages[1] = source.Page{Index: 1, Data: []byte("raw")}

	p := NewProcessor(&fakeLoader{}, sel, extract.NewExtractor(nil), nil, nil, nil)
	res := p.ProcessPages(context.Background(), pages)

	assert.Equal(t, 2, sel.decoded)
	assert.Equal(t, 1, sel.encoded, "undecodable page goes through the raw payload once")
	require.Len(t, res.Pages, 3)
	assert.Equal(t, 2, res.Pages[2].Index)
	assert.True(t, res.Pages[2].EarlyStopped)
	assert.Equal(t, "Importo liquidabile € 10.000,00\nConiuge Maria Rossi 50%\nFiglio Luca Rossi 1/2", res.Text)
	require.NotNil(t, res.Record.GrossAmount)
	assert.InDelta(t, 10000.0, *res.Record.GrossAmount, 1e-9)
	require.Len(t, res.Record.Heirs, 2)
	assert.Empty(t, res.Missing)
}

func TestProcessPagesStopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sel := &fakeSelector{onRun: cancel}

	p := NewProcessor(&fakeLoader{}, sel, extract.NewExtractor(nil), nil, nil, nil)
	res := p.ProcessPages(ctx, pagesOf(4))

	assert.Equal(t, 1, sel.decoded)
	assert.Len(t, res.Pages, 1)
}

func TestProcessFilePersistsResult(t *testing.T) {
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := repository.NewSQLiteDocumentRepository(db, nil)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sel := &fakeSelector{outcomes: []entity.EnsembleOutcome{{BestText: "Erede Anna Verdi 100%", BestConfidence: 88, VariantLabel: "original", Evaluated: 1}}}
	p := NewProcessor(&fakeLoader{pages: pagesOf(1), warnings: []string{"w"}}, sel, extract.NewExtractor(nil), repo, nil, m)

	doc, err := p.ProcessFile(ctx, "/scans/liq.png")
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusExtracted, doc.Status)
	assert.Equal(t, constants.IMAGE, doc.Format)

	stored, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusExtracted, stored.Status)
	assert.Equal(t, "Erede Anna Verdi 100%", stored.Text)
	require.Len(t, stored.Record.Heirs, 1)
	assert.Equal(t, "100.00", stored.Record.Heirs[0].Percentage)
	assert.Equal(t, entity.MissingFieldReport{extract.MissingAmount}, stored.Missing)
	assert.Equal(t, []string{"w"}, stored.Warnings)

	n, err := testutil.GatherAndCount(reg, "liquidation_documents_processed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessFileLoadFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := repository.NewSQLiteDocumentRepository(db, nil)

	loader := &fakeLoader{err: common.ErrNoPages}
	p := NewProcessor(loader, &fakeSelector{}, extract.NewExtractor(nil), repo, nil, nil)

	doc, err := p.ProcessFile(ctx, "/scans/empty.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNoPages))
	require.NotNil(t, doc)

	stored, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "no pages found")
}

func TestProcessFileRejectsUnsupportedFormat(t *testing.T) {
	p := NewProcessor(&fakeLoader{}, &fakeSelector{}, extract.NewExtractor(nil), nil, nil, nil)
	_, err := p.ProcessFile(context.Background(), "contract.docx")
	assert.True(t, errors.Is(err, common.ErrUnsupportedFormat))
}

func TestProcessDocumentWithoutRepository(t *testing.T) {
	sel := &fakeSelector{outcomes: []entity.EnsembleOutcome{{BestText: "Padre Carlo Neri 1/3", BestConfidence: 70}}}
	p := NewProcessor(&fakeLoader{pages: pagesOf(1)}, sel, extract.NewExtractor(nil), nil, nil, nil)

	doc, err := p.ProcessFile(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	require.Len(t, doc.Record.Heirs, 1)
	assert.Equal(t, "33.33", doc.Record.Heirs[0].Percentage)
	assert.False(t, doc.UpdatedAt.IsZero())
}
