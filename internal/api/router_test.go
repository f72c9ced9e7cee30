package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"relatorios/internal/attachments"
	"relatorios/internal/handlers"
	"relatorios/internal/models"
	"relatorios/internal/pdfexport"
	"relatorios/internal/service"
	"relatorios/internal/store"
	"relatorios/pkg/fsops"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	router *gin.Engine
	deps   *handlers.Deps
	files  *fsops.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := store.NewSQLiteStore(filepath.Join(dir, "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	files, err := fsops.NewStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	att := attachments.New(db, files, zap.NewNop())
	svc := service.New(db, att, pdfexport.NewExporter(att, pdfexport.DefaultOptions()), zap.NewNop())
	deps := &handlers.Deps{
		Service:  svc,
		Files:    files,
		Sessions: sessions.NewCookieStore([]byte("test-secret")),
		Log:      zap.NewNop(),
	}
	return &testServer{router: NewRouter(deps, 32), deps: deps, files: files}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seed(t *testing.T, orderNumber string, uploads ...attachments.Upload) (uint, []models.Photo) {
	t.Helper()
	ctx := context.Background()
	id, err := s.deps.Service.SaveReport(ctx, models.ReportFields{OrderNumber: orderNumber, Client: "Acme"}, uploads)
	require.NoError(t, err)
	_, photos, err := s.deps.Service.ViewReport(ctx, id)
	require.NoError(t, err)
	return id, photos
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(40, 30, color.NRGBA{B: 255, A: 255}), imaging.PNG))
	return buf.Bytes()
}

type filePart struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, target string, values map[string][]string, files ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// follow issues a GET to the redirect target carrying the session cookie.
func (s *testServer) follow(t *testing.T, w *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code)
	req := httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return s.do(req)
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestNewReportForm(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="num_os"`)
	assert.Contains(t, w.Body.String(), `action="/save"`)
}

func TestSaveReportWithPhotos(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/save",
		map[string][]string{"num_os": {"OS-77"}, "cliente": {"Acme"}, "photo_titles[0]": {"Painel"}},
		filePart{"photos[0]", "painel.png", pngBytes(t)},
	)
	w := s.do(req)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/view/1", w.Header().Get("Location"))

	page := s.follow(t, w)
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	assert.Contains(t, body, "OS-77")
	assert.Contains(t, body, "Painel")
	assert.Contains(t, body, "Relatório e fotos salvos com sucesso!")

	all, err := s.files.ScanAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveReportLegacyFields(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/salvar",
		map[string][]string{"num_os": {"OS-1"}, "foto_nomes[]": {"Primeira", "Segunda"}},
		filePart{"fotos", "a.png", pngBytes(t)},
		filePart{"fotos", "b.png", pngBytes(t)},
	)
	w := s.do(req)
	require.Equal(t, http.StatusFound, w.Code)

	_, photos, err := s.deps.Service.ViewReport(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "Primeira", photos[0].Title)
	assert.Equal(t, "Segunda", photos[1].Title)
}

func TestSaveReportKeepsEmptyFileSlots(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/save",
		map[string][]string{"num_os": {"OS-10"}, "photo_titles[]": {"A", "B", "C"}},
		filePart{"photos[]", "a.png", pngBytes(t)},
		filePart{"photos[]", "", nil},
		filePart{"photos[]", "c.png", pngBytes(t)},
	)
	w := s.do(req)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/view/1", w.Header().Get("Location"))

	_, photos, err := s.deps.Service.ViewReport(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "A", photos[0].Title)
	assert.Equal(t, "C", photos[1].Title)
}

func TestSaveReportTitlePlaceholders(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/save",
		map[string][]string{"num_os": {"OS-11"}, "photo_titles[0]": {""}},
		filePart{"photos[0]", "blank.png", pngBytes(t)},
		filePart{"photos[1]", "missing.png", pngBytes(t)},
	)
	require.Equal(t, http.StatusFound, s.do(req).Code)

	_, photos, err := s.deps.Service.ViewReport(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "", photos[0].Title, "an explicitly blank title is kept")
	assert.Equal(t, service.NewReportPhotoTitle, photos[1].Title)
}

func TestSaveReportRejectsBadPhoto(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/save",
		map[string][]string{"num_os": {"OS-2"}},
		filePart{"photos[0]", "notes.txt", []byte("not an image")},
	)
	w := s.do(req)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	reports, err := s.deps.Service.ListReports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestEditReportRemovesAndAddsPhotos(t *testing.T) {
	s := newTestServer(t)
	id, photos := s.seed(t, "OS-3", attachments.Upload{Filename: "old.png", Title: "Old", Data: pngBytes(t)})
	require.Len(t, photos, 1)

	req := multipartRequest(t, "/edit/1",
		map[string][]string{"num_os": {"OS-3b"}, "remove_photo[]": {"1"}, "photo_titles[0]": {"New"}},
		filePart{"photos[0]", "new.jpg", pngBytes(t)},
	)
	w := s.do(req)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/view/1", w.Header().Get("Location"))

	report, photos, err := s.deps.Service.ViewReport(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "OS-3b", report.OrderNumber)
	assert.Empty(t, report.Client, "fields missing from the form are cleared")
	require.Len(t, photos, 1)
	assert.Equal(t, "New", photos[0].Title)
	assert.True(t, strings.HasSuffix(photos[0].Filename, ".jpg"))
}

func TestEditFormShowsPhotos(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "OS-4", attachments.Upload{Filename: "a.png", Title: "Frente", Data: pngBytes(t)})

	w := s.do(httptest.NewRequest(http.MethodGet, "/editar/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Frente")
	assert.Contains(t, w.Body.String(), `name="remove_photo[]" value="1"`)
}

func TestViewMissingReportRedirects(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodGet, "/view/42", nil))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/list", w.Header().Get("Location"))

	page := s.follow(t, w)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Relatório não encontrado!")
}

func TestListReports(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "OS-A")
	s.seed(t, "OS-B")

	w := s.do(httptest.NewRequest(http.MethodGet, "/listar", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "OS-A")
	require.Contains(t, body, "OS-B")
	assert.Less(t, strings.Index(body, "OS-B"), strings.Index(body, "OS-A"), "newest first")
}

func TestUploadPhotoEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "OS-5")

	w := s.do(multipartRequest(t, "/upload_photo/1", nil, filePart{"photo", "x.png", pngBytes(t)}))
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.UploadPhotoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, strings.HasSuffix(resp.Filename, ".png"))
	assert.True(t, s.files.Exists(resp.Filename))

	w = s.do(multipartRequest(t, "/upload_foto/1", nil, filePart{"photo", "x.bmp", []byte("BM")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Formato de arquivo não suportado")

	w = s.do(multipartRequest(t, "/upload_photo/1", map[string][]string{"other": {"x"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(multipartRequest(t, "/upload_photo/99", nil, filePart{"photo", "x.png", pngBytes(t)}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePhotoEndpoint(t *testing.T) {
	s := newTestServer(t)
	_, photos := s.seed(t, "OS-6", attachments.Upload{Filename: "a.png", Title: "A", Data: pngBytes(t)})
	require.Len(t, photos, 1)

	w := s.do(httptest.NewRequest(http.MethodPost, "/delete_photo/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.False(t, s.files.Exists(photos[0].Filename))

	w = s.do(httptest.NewRequest(http.MethodPost, "/deletar_foto/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditPhotoEndpoint(t *testing.T) {
	s := newTestServer(t)
	_, photos := s.seed(t, "OS-7", attachments.Upload{Filename: "a.png", Title: "A", Data: pngBytes(t)})
	before, err := s.files.Read(photos[0].Filename)
	require.NoError(t, err)

	var edited bytes.Buffer
	require.NoError(t, imaging.Encode(&edited, imaging.New(10, 10, color.NRGBA{G: 255, A: 255}), imaging.PNG))
	payload, err := json.Marshal(handlers.EditPhotoRequest{
		Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(edited.Bytes()),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/edit_photo/1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	after, err := s.files.Read(photos[0].Filename)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	req = httptest.NewRequest(http.MethodPost, "/edit_photo/1", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, s.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/editar_foto/99", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNotFound, s.do(req).Code)
}

func TestServeAttachment(t *testing.T) {
	s := newTestServer(t)
	_, photos := s.seed(t, "OS-8", attachments.Upload{Filename: "a.png", Title: "A", Data: pngBytes(t)})

	w := s.do(httptest.NewRequest(http.MethodGet, "/attachments/"+photos[0].Filename, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
	assert.True(t, strings.HasSuffix(photos[0].Filename, ".png"))
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	w = s.do(httptest.NewRequest(http.MethodGet, "/uploads/"+photos[0].Filename, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/attachments/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Arquivo não encontrado", w.Body.String())
}

func TestPDFEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "OS-77", attachments.Upload{Filename: "a.png", Title: "A", Data: pngBytes(t)})

	w := s.do(httptest.NewRequest(http.MethodGet, "/pdf/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=relatorio_OS_77.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = s.do(httptest.NewRequest(http.MethodGet, "/pdf/view/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inline; filename=relatorio_OS_77.pdf", w.Header().Get("Content-Disposition"))

	w = s.do(httptest.NewRequest(http.MethodGet, "/pdf/visualizar/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/pdf/2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Relatório não encontrado", w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, "/pdf/abc", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditEndpoint(t *testing.T) {
	s := newTestServer(t)
	_, photos := s.seed(t, "OS-9",
		attachments.Upload{Filename: "a.png", Title: "A", Data: pngBytes(t)},
		attachments.Upload{Filename: "b.png", Title: "B", Data: pngBytes(t)},
	)
	require.NoError(t, os.Remove(filepath.Join(s.files.Root, photos[1].Filename)))

	w := s.do(httptest.NewRequest(http.MethodGet, "/debug_photos/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var audit attachments.Audit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &audit))
	assert.True(t, audit.TableExists)
	assert.Len(t, audit.Rows, 2)
	assert.Equal(t, 1, audit.Orphaned)
}
