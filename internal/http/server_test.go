package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bakano/internal/ai"
	"bakano/internal/config"
	"bakano/internal/core"
	"bakano/internal/ledger"
	"bakano/internal/services"
)

func mustMoney(cents int64) core.Money {
	return core.Money{Cents: cents}
}

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		AbsenceWarnLimit:   3,
		DefaultMonthlyFee:  mustMoney(20000),
		DefaultSessionDays: []time.Weekday{time.Tuesday, time.Friday},
	}
}

func newTestServer(t *testing.T) (*Server, *services.LedgerService) {
	t.Helper()
	svc := services.NewLedgerService(ledger.New(), nil, nil)
	srv := NewServer(":0", svc, testConfig(), nil, nil, nil)
	if srv.templates == nil {
		t.Fatal("embedded templates failed to parse")
	}
	return srv, svc
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Bakano") {
		t.Fatal("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateGroupValidationAndSuccess(t *testing.T) {
	srv, svc := newTestServer(t)

	// One distinct day only (duplicate selects collapse)
	rr := postForm(srv, "/groups", url.Values{
		"name": {"G1"}, "sessionDays": {"2", "2"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for duplicate days, got %d", rr.Code)
	}

	// Out of range day
	rr = postForm(srv, "/groups", url.Values{
		"name": {"G1"}, "sessionDays": {"2", "9"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for invalid day, got %d", rr.Code)
	}

	// Empty name
	rr = postForm(srv, "/groups", url.Values{
		"name": {"  "}, "sessionDays": {"2", "5"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for empty name, got %d", rr.Code)
	}

	rr = postForm(srv, "/groups", url.Values{
		"name": {"Morning Group"}, "sessionDays": {"2", "5"},
	})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(svc.Groups()) != 1 {
		t.Fatal("group was not created")
	}
	if !strings.Contains(rr.Body.String(), "Morning Group") {
		t.Fatal("roster fragment missing new group")
	}
}

func TestStudentLifecycleOverHTTP(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	g, _ := svc.CreateGroup(ctx, "G", []time.Weekday{time.Tuesday, time.Friday})

	// Add with default fee
	rr := postForm(srv, "/students", url.Values{
		"name": {"Mohamed Dahi"}, "group": {g.ID},
	})
	if rr.Code != 200 {
		t.Fatalf("add student: %d %s", rr.Code, rr.Body.String())
	}
	group, _ := svc.Group(g.ID)
	if len(group.Students) != 1 || group.Students[0].MonthlyFee.Cents != 20000 {
		t.Fatalf("unexpected students: %+v", group.Students)
	}
	st := group.Students[0]

	// Unknown group
	rr = postForm(srv, "/students", url.Values{
		"name": {"X"}, "group": {"nope"},
	})
	if rr.Code != 404 {
		t.Fatalf("expected 404 for unknown group, got %d", rr.Code)
	}

	// Rename
	rr = postForm(srv, "/students/"+st.ID+"/rename", url.Values{"name": {"Mohamed D."}})
	if rr.Code != 200 {
		t.Fatalf("rename: %d", rr.Code)
	}
	group, _ = svc.Group(g.ID)
	if group.Students[0].Name != "Mohamed D." {
		t.Fatalf("name = %q", group.Students[0].Name)
	}

	// Attendance cycle: unmarked -> present -> absent -> unmarked
	for i, step := range []struct{ observed, want string }{
		{"", "present"},
		{"present", "absent"},
		{"absent", ""},
	} {
		rr = postForm(srv, "/students/"+st.ID+"/attendance", url.Values{
			"date": {"2024-08-06"}, "observed": {step.observed},
		})
		if rr.Code != 200 {
			t.Fatalf("toggle %d: %d", i, rr.Code)
		}
		group, _ = svc.Group(g.ID)
		if got := string(group.Students[0].Attendance["2024-08-06"]); got != step.want {
			t.Fatalf("toggle %d: status = %q, want %q", i, got, step.want)
		}
	}

	// Malformed date
	rr = postForm(srv, "/students/"+st.ID+"/attendance", url.Values{
		"date": {"06/08/2024"}, "observed": {""},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for bad date, got %d", rr.Code)
	}

	// Payment toggle
	rr = postForm(srv, "/students/"+st.ID+"/payment", url.Values{"month": {"2024-08"}})
	if rr.Code != 200 {
		t.Fatalf("payment: %d", rr.Code)
	}
	group, _ = svc.Group(g.ID)
	if group.Students[0].PaymentFor("2024-08") != "paid" {
		t.Fatal("first toggle should mark paid")
	}

	// Delete twice, both fine
	for i := 0; i < 2; i++ {
		rr = postForm(srv, "/students/"+st.ID+"/delete", url.Values{})
		if rr.Code != 200 {
			t.Fatalf("delete %d: %d", i, rr.Code)
		}
	}
}

func TestRosterFiltering(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	g, _ := svc.CreateGroup(ctx, "G", []time.Weekday{time.Tuesday, time.Friday})
	mohamed, _ := svc.AddStudent(ctx, "Mohamed Dahi", g.ID, mustMoney(20000))
	svc.AddStudent(ctx, "Karim Najib", g.ID, mustMoney(20000))
	month := time.Now().Format("2006-01")
	svc.TogglePayment(ctx, mohamed.ID, month)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/roster?unpaid=1&search=najib", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("roster: %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "Mohamed") {
		t.Fatal("paid student should be filtered out")
	}
	if !strings.Contains(body, "Karim Najib") {
		t.Fatal("matching unpaid student missing")
	}
}

func TestExtractUnavailableWithoutAdapter(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := postForm(srv, "/extract", url.Values{})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	rr = postForm(srv, "/reports/absence", url.Values{"start": {"2024-08-01"}, "end": {"2024-08-31"}})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

type stubAbsenceReporter struct{}

func (stubAbsenceReporter) GenerateAbsenceReport(_ context.Context, req ai.AbsenceReportRequest) (ai.AbsenceReport, error) {
	return ai.AbsenceReport{
		Summary:         "One student missed sessions.",
		Recommendations: []string{"Call the parents"},
	}, nil
}

func TestAbsenceReportEndpoint(t *testing.T) {
	svc := services.NewLedgerService(ledger.New(), nil, nil)
	srv := NewServer(":0", svc, testConfig(), nil, nil, stubAbsenceReporter{})
	ctx := context.Background()

	g, _ := svc.CreateGroup(ctx, "G", []time.Weekday{time.Tuesday, time.Friday})
	st, _ := svc.AddStudent(ctx, "Mohamed Dahi", g.ID, mustMoney(20000))

	// No absences yet: static fragment, no model call needed.
	rr := postForm(srv, "/reports/absence", url.Values{
		"start": {"2024-08-01"}, "end": {"2024-08-31"},
	})
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "No absences") {
		t.Fatalf("empty range: %d %s", rr.Code, rr.Body.String())
	}

	// Mark an absence inside the range.
	svc.ToggleAttendance(ctx, st.ID, "2024-08-06", "present")

	rr = postForm(srv, "/reports/absence", url.Values{
		"start": {"2024-08-01"}, "end": {"2024-08-31"},
	})
	if rr.Code != 200 {
		t.Fatalf("report: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "One student missed sessions.") {
		t.Fatal("summary missing from fragment")
	}

	// Inverted range
	rr = postForm(srv, "/reports/absence", url.Values{
		"start": {"2024-08-31"}, "end": {"2024-08-01"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for inverted range, got %d", rr.Code)
	}
}

func TestMonthlyPDFEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	g, _ := svc.CreateGroup(ctx, "G", []time.Weekday{time.Tuesday, time.Friday})
	svc.AddStudent(ctx, "Mohamed Dahi", g.ID, mustMoney(20000))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports/monthly.pdf?month=2024-08", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("pdf: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF") {
		t.Fatal("body is not a PDF")
	}
}
