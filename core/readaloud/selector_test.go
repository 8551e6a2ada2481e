package readaloud

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
	"cropguard-api/core/interfaces/mocks"
	stdhttp "cropguard-api/infrastructure/http/standard"
	"cropguard-api/pkg/netguard"
)

const resultPage = `<!doctype html>
<html><body>
<nav><h2>Menu</h2><p>Home</p></nav>
<main id="result">
  <h1>Late   Blight
  </h1>
  <p>Dark, water-soaked lesions on leaves.</p>
  <p>-</p>
  <div class="card">
    <label>Confidence <span class="readable">94 percent</span></label>
    <span class="stat-value">12</span>
    <span class="scan-label">Total Scans</span>
  </div>
  <button><p>Scan again</p></button>
  <div role="button"><label>Share</label></div>
  <a href="/diseases"><h3>Browse diseases</h3></a>
  <div data-readable>Remove infected plants</div>
  <section><h4>Prevention</h4><p>Rotate crops yearly.</p></section>
</main>
</body></html>`

func texts(els []ReadableElement) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.Text
	}
	return out
}

func TestHTMLSelector_Readable(t *testing.T) {
	sel, err := NewHTMLSelectorFromString(resultPage)
	require.NoError(t, err)

	els, err := sel.Readable(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Late Blight",
		"Dark, water-soaked lesions on leaves.",
		"Confidence",
		"94 percent",
		"12",
		"Total Scans",
		"Remove infected plants",
		"Prevention",
		"Rotate crops yearly.",
	}, texts(els))

	for i, el := range els {
		assert.Equal(t, i, el.Index)
	}
	assert.Equal(t, "h1", els[0].Tag)
	assert.Equal(t, "#result > h1:nth-of-type(1)", els[0].Path)
	assert.Equal(t, "#result > p:nth-of-type(1)", els[1].Path)
	assert.Equal(t, "#result > div:nth-of-type(1) > label:nth-of-type(1)", els[2].Path)
	assert.Equal(t, "#result > div:nth-of-type(1) > label:nth-of-type(1) > span:nth-of-type(1)", els[3].Path)
	assert.Equal(t, "#result > section:nth-of-type(1) > p:nth-of-type(1)", els[8].Path)
}

func TestHTMLSelector_KeepsOuterWhenInnerTooShort(t *testing.T) {
	sel, err := NewHTMLSelectorFromString(`<label>Healthy <span class="readable">✓</span></label>`)
	require.NoError(t, err)

	els, err := sel.Readable(context.Background())
	require.NoError(t, err)
	require.Len(t, els, 1)
	assert.Equal(t, "Healthy ✓", els[0].Text)
	assert.Equal(t, "html > body > label:nth-of-type(1)", els[0].Path)
}

func TestHTMLSelector_NestedCandidates(t *testing.T) {
	sel, err := NewHTMLSelectorFromString(`<div data-readable>Crop: <label>Tomato <span class="readable">(leaf)</span> field 2</label></div>` +
		`<label>x<span class="readable">Only inner</span></label>`)
	require.NoError(t, err)

	els, err := sel.Readable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Crop:", "Tomato field 2", "(leaf)", "Only inner"}, texts(els))
	assert.Equal(t, "html > body > div:nth-of-type(1) > label:nth-of-type(1)", els[1].Path)
}

func TestHTMLSelector_NothingReadable(t *testing.T) {
	sel, err := NewHTMLSelectorFromString(`<nav><p>Home</p></nav><div>loose text</div><p> x </p>`)
	require.NoError(t, err)

	els, err := sel.Readable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestHTMLSelector_CancelledContext(t *testing.T) {
	sel, err := NewHTMLSelectorFromString(resultPage)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sel.Readable(ctx)
	assert.Error(t, err)
}

func page(status int, body string) *mocks.HTTPClient {
	return &mocks.HTTPClient{
		GetFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			return &mocks.Response{Status: status, Content: body}, nil
		},
	}
}

func TestURLSelector(t *testing.T) {
	els, err := URLSelector{HTTP: page(200, resultPage), URL: "https://cropguard.example/result/1"}.Readable(context.Background())
	require.NoError(t, err)
	assert.Len(t, els, 9)

	_, err = URLSelector{HTTP: page(200, resultPage), URL: "file:///etc/passwd"}.Readable(context.Background())
	assert.True(t, errors.IsValidation(err))

	_, err = URLSelector{HTTP: page(404, ""), URL: "https://cropguard.example/missing"}.Readable(context.Background())
	assert.True(t, errors.IsExternalAPI(err))
}

func TestURLSelector_RefusesInternalHosts(t *testing.T) {
	var hits int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("<p>internal-secret-token</p>"))
	}))
	defer server.Close()

	guarded := stdhttp.NewStandardHTTPClient(5*time.Second, stdhttp.WithTransport(stdhttp.NewPublicTransport()))
	els, err := URLSelector{HTTP: guarded, URL: server.URL}.Readable(context.Background())
	assert.True(t, errors.IsValidation(err), "%v", err)
	assert.Empty(t, els)
	assert.Zero(t, atomic.LoadInt32(&hits))

	never := &mocks.HTTPClient{
		GetFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			t.Errorf("fetched %s", url)
			return &mocks.Response{Status: 200}, nil
		},
	}
	for _, u := range []string{"http://169.254.169.254/latest/meta-data", "http://localhost:8080/", "http://[::1]/", "http://10.0.0.5/admin"} {
		_, err := URLSelector{HTTP: never, URL: u}.Readable(context.Background())
		assert.True(t, errors.IsValidation(err), u)
	}

	// names that resolve inwards are refused at dial time
	dialRefused := &mocks.HTTPClient{
		GetFunc: func(ctx context.Context, u string) (interfaces.Response, error) {
			return nil, &url.Error{Op: "Get", URL: u, Err: fmt.Errorf("dial: %w", netguard.ErrBlocked)}
		},
	}
	_, err = URLSelector{HTTP: dialRefused, URL: "https://intranet.cropguard.example/"}.Readable(context.Background())
	assert.True(t, errors.IsValidation(err))
}

func TestURLSelector_ArticleMode(t *testing.T) {
	body := `<html><head><title>Managing late blight in tomato</title></head><body>
<nav><a href="/">Home</a></nav>
<article>
<h2>Why late blight spreads</h2>
<p>` + strings.Repeat("Late blight spreads quickly in cool and wet weather, moving from leaf to leaf. ", 8) + `</p>
<p>` + strings.Repeat("Remove infected plants and avoid overhead irrigation to protect the crop. ", 8) + `</p>
</article>
<footer><p>Copyright</p></footer>
</body></html>`

	els, err := URLSelector{HTTP: page(200, body), URL: "https://advisory.example/late-blight", Article: true}.Readable(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, els)

	assert.Equal(t, "h1", els[0].Tag)
	assert.Contains(t, els[0].Text, "late blight")
	joined := strings.Join(texts(els), " ")
	assert.Contains(t, joined, "Remove infected plants")
	assert.NotContains(t, joined, "Copyright")
}
