package bidnet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bidwatch-engine/internal/fetch"
	"bidwatch-engine/internal/logging"
	"bidwatch-engine/internal/scrape"
)

const virginiaPage = `<html><body>
<table class="solicitations-table"><tbody>
<tr>
  <td class="solicitation-title"><a href="/virginia/solicitation/777">Janitorial Services for County Offices</a></td>
  <td class="solicitation-ref">IFB-777</td>
  <td class="solicitation-agency">Fairfax County</td>
  <td class="solicitation-due">05/01/2024</td>
  <td class="solicitation-description">daily cleaning</td>
</tr>
<tr>
  <td class="solicitation-title"><a href="/virginia/solicitation/778">Road Resurfacing</a></td>
  <td class="solicitation-ref">IFB-778</td>
  <td class="solicitation-agency">VDOT</td>
  <td class="solicitation-due">06/01/2024</td>
</tr>
</tbody></table>
</body></html>`

const emptyPage = `<html><body><table class="solicitations-table"><tbody></tbody></table></body></html>`

func testClient(t *testing.T) *fetch.Client {
	t.Helper()
	return fetch.NewClient(fetch.Options{
		HostRatePerSec: 1000,
		HostBurst:      1000,
		Logger:         logging.Nop(),
	})
}

func TestScrapeExtractsAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/virginia/solicitations/open-bids":
			w.Write([]byte(virginiaPage))
		case "/maryland/solicitations/open-bids":
			w.Write([]byte(emptyPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, Regions: []string{"virginia", "maryland"}},
		testClient(t), scrape.Keywords{"janitorial"}, logging.Nop())

	res, err := a.Scrape(context.Background())
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(res.Contracts) != 1 {
		t.Fatalf("contracts = %d; want 1 (road work filtered out)", len(res.Contracts))
	}

	c := res.Contracts[0]
	if c.RegionCode != "VA" {
		t.Errorf("region = %q; want VA", c.RegionCode)
	}
	if c.ReferenceNumber != "IFB-777" {
		t.Errorf("reference = %q", c.ReferenceNumber)
	}
	if c.DueDate != "2024-05-01" {
		t.Errorf("due date = %q; want 2024-05-01", c.DueDate)
	}
	if c.Link != srv.URL+"/virginia/solicitation/777" {
		t.Errorf("relative link not resolved: %q", c.Link)
	}
	if c.IssuingBody != "Fairfax County" {
		t.Errorf("issuing body = %q", c.IssuingBody)
	}
	if c.Extra["description"] != "daily cleaning" {
		t.Errorf("description extra = %q", c.Extra["description"])
	}
}

func TestScrapePartialRegionFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/virginia/solicitations/open-bids" {
			w.Write([]byte(virginiaPage))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, Regions: []string{"virginia", "atlantis"}},
		testClient(t), nil, logging.Nop())

	res, err := a.Scrape(context.Background())
	if err != nil {
		t.Fatalf("one dead region must not fail the adapter: %v", err)
	}
	if len(res.Contracts) != 2 {
		t.Errorf("contracts = %d; want 2 from the healthy region", len(res.Contracts))
	}
}

func TestScrapeAllRegionsFailing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, Regions: []string{"virginia", "maryland"}},
		testClient(t), nil, logging.Nop())

	if _, err := a.Scrape(context.Background()); err == nil {
		t.Fatal("want error when every region fails")
	}
}
