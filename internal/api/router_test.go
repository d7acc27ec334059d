package api

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cert_registry/internal/certstore"
	"cert_registry/internal/config"
	"cert_registry/internal/middleware"
	"cert_registry/internal/registry"
	"cert_registry/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminWallet   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	studentWallet = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

var pdfBytes = []byte("%PDF-1.4\n% certificate of completion\n%%EOF\n")

type testServer struct {
	router *gin.Engine
	cfg    *config.Config
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{
		StudentsFile:    filepath.Join(dir, "students.json"),
		CertificatesDir: filepath.Join(dir, "certificates"),
		CORSOrigin:      "http://localhost:5173",
		AdminAddress:    adminWallet,
	}
	for _, m := range mutate {
		m(cfg)
	}

	records, err := store.NewJSONStore(cfg.StudentsFile)
	require.NoError(t, err)
	certs, err := certstore.NewLocalStore(cfg.CertificatesDir, "/certificates")
	require.NoError(t, err)

	return &testServer{router: NewRouter(cfg, registry.NewService(records, certs)), cfg: cfg}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJSON(t *testing.T, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return s.do(req)
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) upload(t *testing.T, roll string, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, "certificate.pdf")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/students/"+roll+"/certificate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func studentBody() map[string]interface{} {
	return map[string]interface{}{
		"name":          "Grace Hopper",
		"rollNumber":    "R1",
		"department":    "Mathematics",
		"admissionYear": 2020,
		"walletAddress": studentWallet,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func listLen(t *testing.T, s *testServer) int {
	t.Helper()
	w := s.get("/api/students")
	require.Equal(t, http.StatusOK, w.Code)
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return len(out)
}

func TestCreateStudent_Created(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON(t, "/api/students", studentBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decode(t, w)
	assert.Equal(t, "Grace Hopper", got["name"])
	assert.Equal(t, "R1", got["rollNumber"])
	assert.Equal(t, "Mathematics", got["department"])
	assert.EqualValues(t, 2020, got["admissionYear"])
	assert.Equal(t, studentWallet, got["walletAddress"])
	assert.Nil(t, got["certificateUrl"])
	assert.Contains(t, got, "certificateUrl")
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, got["createdAt"])
	assert.NotContains(t, got, "ID")
}

func TestCreateStudent_AcceptsYearAsString(t *testing.T) {
	s := newTestServer(t)
	body := studentBody()
	body["admissionYear"] = "2019"

	w := s.postJSON(t, "/api/students", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 2019, decode(t, w)["admissionYear"])
}

func TestCreateStudent_Duplicate(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.postJSON(t, "/api/students", studentBody()).Code)

	w := s.postJSON(t, "/api/students", studentBody())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Student already exists", decode(t, w)["error"])
	assert.Equal(t, 1, listLen(t, s))

	other := studentBody()
	other["rollNumber"] = "R2"
	other["walletAddress"] = strings.ToLower(studentWallet)
	w = s.postJSON(t, "/api/students", other)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Wallet address already registered", decode(t, w)["error"])
}

func TestCreateStudent_MissingFields(t *testing.T) {
	for _, field := range []string{"name", "rollNumber", "department", "admissionYear", "walletAddress"} {
		t.Run(field, func(t *testing.T) {
			s := newTestServer(t)
			body := studentBody()
			delete(body, field)

			w := s.postJSON(t, "/api/students", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Missing required fields", decode(t, w)["error"])
			assert.Equal(t, 0, listLen(t, s))
		})
	}
}

func TestCreateStudent_BadBodies(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", decode(t, w)["error"])

	req = httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode(t, w)["error"])

	body := studentBody()
	body["admissionYear"] = "twenty"
	w = s.postJSON(t, "/api/students", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, listLen(t, s))
}

func TestLookups_NotFound(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/students/NOPE", "/api/students/wallet/0xdoesnotexist"} {
		w := s.get(path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "Student not found", decode(t, w)["error"], path)
	}
}

func TestLookupByWallet_IgnoresCase(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.postJSON(t, "/api/students", studentBody()).Code)

	for _, addr := range []string{studentWallet, strings.ToLower(studentWallet), strings.ToUpper(studentWallet[2:])} {
		if !strings.HasPrefix(addr, "0x") {
			addr = "0x" + addr
		}
		w := s.get("/api/students/wallet/" + addr)
		require.Equal(t, http.StatusOK, w.Code, addr)
		assert.Equal(t, "R1", decode(t, w)["rollNumber"])
	}
}

func TestUploadCertificate_ServesIdenticalBytes(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.postJSON(t, "/api/students", studentBody()).Code)

	w := s.upload(t, "R1", "certificate", pdfBytes)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	wantURL := "/certificates/" + studentWallet + "/R1.pdf"
	assert.Equal(t, wantURL, decode(t, w)["certificateUrl"])

	file := s.get(wantURL)
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, pdfBytes, file.Body.Bytes())

	// the two lookups agree after the upload
	byRoll := decode(t, s.get("/api/students/R1"))
	byWallet := decode(t, s.get("/api/students/wallet/"+strings.ToLower(studentWallet)))
	assert.Equal(t, byRoll, byWallet)
	assert.Equal(t, wantURL, byRoll["certificateUrl"])

	// a second upload replaces the file
	replacement := []byte("%PDF-1.7\nreissued\n")
	require.Equal(t, http.StatusOK, s.upload(t, "R1", "certificate", replacement).Code)
	assert.Equal(t, replacement, s.get(wantURL).Body.Bytes())
}

func TestUploadCertificate_UnknownRollWritesNothing(t *testing.T) {
	s := newTestServer(t)

	w := s.upload(t, "GHOST", "certificate", pdfBytes)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Student not found", decode(t, w)["error"])

	var files []string
	require.NoError(t, filepath.WalkDir(s.cfg.CertificatesDir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, p)
		}
		return err
	}))
	assert.Empty(t, files)
}

func TestUploadCertificate_NoFile(t *testing.T) {
	s := newTestServer(t)

	// checked before the roll number is looked up
	w := s.upload(t, "GHOST", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No certificate file uploaded", decode(t, w)["error"])
}

func TestMissingCertificateAndUnknownAPIPath(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/certificates/0xabc/R9.pdf", "/api/unknown", "/api"} {
		w := s.get(path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "Not found", decode(t, w)["error"], path)
	}
}

func TestAppShellFallback(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		s := newTestServer(t)
		w := s.get("/student/dashboard")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Student Certificate Registry")
	})

	t.Run("build directory", func(t *testing.T) {
		dist := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>built shell</html>"), 0o644))
		require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "app.js"), []byte("console.log(1)"), 0o644))
		s := newTestServer(t, func(c *config.Config) { c.StaticDir = dist })

		assert.Equal(t, "console.log(1)", s.get("/assets/app.js").Body.String())
		assert.Contains(t, s.get("/admin").Body.String(), "built shell")
		assert.Contains(t, s.get("/../../etc/passwd").Body.String(), "built shell")
	})
}

func TestAdminGuard(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.AdminGuard = true })

	w := s.postJSON(t, "/api/students", studentBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.postJSON(t, "/api/students", studentBody(), middleware.WalletHeader, studentWallet)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", decode(t, w)["error"])

	w = s.postJSON(t, "/api/students", studentBody(), middleware.WalletHeader, strings.ToLower(adminWallet))
	assert.Equal(t, http.StatusCreated, w.Code)

	// reads stay open
	assert.Equal(t, http.StatusOK, s.get("/api/students/R1").Code)
}

func TestIdentityHandler(t *testing.T) {
	s := newTestServer(t)

	got := decode(t, s.get("/api/identity/"+strings.ToLower(adminWallet)))
	assert.Equal(t, "admin", got["role"])
	assert.Equal(t, true, got["adminConfigured"])

	got = decode(t, s.get("/api/identity/"+studentWallet))
	assert.Equal(t, "student", got["role"])

	unconfigured := newTestServer(t, func(c *config.Config) { c.AdminAddress = "" })
	got = decode(t, unconfigured.get("/api/identity/"+adminWallet))
	assert.Equal(t, "student", got["role"])
	assert.Equal(t, false, got["adminConfigured"])
}

func TestCORSAndRequestID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/students", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := s.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.Header.Set("Origin", "http://evil.example")
	assert.Equal(t, http.StatusForbidden, s.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w = s.do(req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
	assert.NotEmpty(t, s.get("/api/students").Header().Get(middleware.RequestIDHeader))
}
