// Package templates renders the HTML views of the web shell.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// IndexView is the data shown on the upload page.
type IndexView struct {
	ProfileName string
	Variant     string
	Strategy    string
	WardPattern string
	MaxUploadMB int64
}

// RunView summarises a finished run.
type RunView struct {
	ID        string
	Kind      string
	Rows      int
	Counts    map[string]int
	Warnings  []string
	ExportURL string
}

// outcomeOrder fixes the display order of run counts.
var outcomeOrder = []string{"matched", "needs_ward_check", "before_window", "after_window", "unresolved"}

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>%s</style>
</head>
<body>
<main>
`, templ.EscapeString(title), pageCSS); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main>\n<script>"+pageJS+"</script>\n</body>\n</html>\n")
		return err
	})
}

// IndexPage is the upload page with the match, census and case lookup forms.
func IndexPage(v IndexView) templ.Component {
	return Layout("ICU 혈류감염 감시 매칭", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		profile := "없음 (열 설정 JSON 필요)"
		if v.ProfileName != "" {
			profile = v.ProfileName
		}
		_, err := fmt.Fprintf(w, `<h1>ICU 혈류감염 감시 매칭</h1>
<p class="meta">프로필: %s · 기본 양식: %s · 매칭 방식: %s · ICU 병동: <code>%s</code> · 파일당 최대 %dMB</p>

<section>
<h2>매칭</h2>
<form class="run" action="/api/match" method="post" enctype="multipart/form-data">
<label>ICU 입퇴실 파일 <input type="file" name="episodes" accept=".xlsx,.csv" required></label>
<label>혈액배양 파일 <input type="file" name="cultures" accept=".xlsx,.csv" required></label>
<label>환자정보 파일 (선택) <input type="file" name="info" accept=".xlsx,.csv"></label>
<label>KONIS WRAP 등록 명단 (선택) <input type="file" name="registry" accept=".xlsx,.csv"></label>
<label>열 설정 (JSON, 선택) <textarea name="config" rows="6" placeholder='{"episodes":{"id":"환자번호","admit":"입실일시","discharge":"퇴실일시"},"cultures":{"id":"환자번호","collected_at":"시행일시"}}'></textarea></label>
<label>양식 <select name="variant"><option value="">기본</option><option value="external">외부 감사용</option><option value="internal">내부 검토용</option></select></label>
<button type="submit">매칭 실행</button>
<button type="button" class="inspect">열 추천</button>
</form>
</section>

<section>
<h2>입퇴실일 생성 (재원 명단)</h2>
<form class="run" action="/api/episodes/derive" method="post" enctype="multipart/form-data">
<label>월별 재원 명단 <input type="file" name="census" accept=".xlsx,.csv" multiple required></label>
<label>ID 열 (선택) <input type="text" name="id_column"></label>
<label>재원 표시 값 <input type="text" name="marker" value="1"></label>
<button type="submit">생성</button>
</form>
</section>

<section>
<h2>등록 사례 추정 ID</h2>
<form class="run" action="/api/cases/lookup" method="post" enctype="multipart/form-data">
<label>등록 사례 파일 <input type="file" name="cases" accept=".xlsx,.csv" required></label>
<label>ICU 입퇴실 파일 <input type="file" name="episodes" accept=".xlsx,.csv" required></label>
<label>혈액배양 파일 <input type="file" name="cultures" accept=".xlsx,.csv" required></label>
<label>환자정보 파일 <input type="file" name="info" accept=".xlsx,.csv"></label>
<label>설정 (JSON) <textarea name="config" rows="6"></textarea></label>
<button type="submit">추정</button>
</form>
</section>

<div id="result" aria-live="polite"></div>
`,
			templ.EscapeString(profile),
			templ.EscapeString(v.Variant),
			templ.EscapeString(v.Strategy),
			templ.EscapeString(v.WardPattern),
			v.MaxUploadMB,
		)
		return err
	}))
}

// RunSummary is the fragment shown after a run completes.
func RunSummary(v RunView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<div class="summary" data-run-id="%s">`, templ.EscapeString(v.ID))
		fmt.Fprintf(&b, `<p>%s 완료: %d행</p>`, templ.EscapeString(v.Kind), v.Rows)

		if len(v.Counts) > 0 {
			b.WriteString(`<table class="counts"><tbody>`)
			for _, k := range outcomeOrder {
				if n, ok := v.Counts[k]; ok {
					fmt.Fprintf(&b, `<tr><th>%s</th><td>%d</td></tr>`, templ.EscapeString(k), n)
				}
			}
			b.WriteString(`</tbody></table>`)
		}

		if len(v.Warnings) > 0 {
			b.WriteString(`<ul class="warnings">`)
			for _, msg := range v.Warnings {
				fmt.Fprintf(&b, `<li>%s</li>`, templ.EscapeString(msg))
			}
			b.WriteString(`</ul>`)
		}

		fmt.Fprintf(&b, `<p><a href="%s">XLSX 다운로드</a> · <a href="%s?format=csv">CSV 다운로드</a></p>`,
			templ.EscapeString(v.ExportURL), templ.EscapeString(v.ExportURL))
		b.WriteString(`</div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ErrorAlert renders a user-facing error with the action to take.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert" role="alert"><strong>%s</strong>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p>%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<small>%s</small></div>`, templ.EscapeString(code))
		return err
	})
}

const pageCSS = `
body{font-family:system-ui,"Malgun Gothic",sans-serif;margin:0;background:#f6f8fa;color:#1f2328}
main{max-width:860px;margin:0 auto;padding:24px}
section{background:#fff;border:1px solid #d0d7de;border-radius:6px;padding:16px;margin-bottom:16px}
label{display:block;margin:8px 0}
textarea{width:100%;font-family:monospace}
.meta{color:#656d76;font-size:14px}
.alert{border:1px solid #cf222e;background:#ffebe9;padding:12px;border-radius:6px}
.summary{border:1px solid #1a7f37;background:#dafbe1;padding:12px;border-radius:6px}
.counts th{text-align:left;padding-right:16px}
`

// pageJS posts the forms in the background and shows the returned fragment.
const pageJS = `
document.querySelectorAll("form.run").forEach(function (form) {
  function send(action) {
    var out = document.getElementById("result");
    out.textContent = "처리 중...";
    fetch(action, {method: "POST", body: new FormData(form), headers: {"HX-Request": "true"}})
      .then(function (r) { return r.text(); })
      .then(function (html) { out.innerHTML = html; })
      .catch(function (e) { out.textContent = e; });
  }
  form.addEventListener("submit", function (ev) { ev.preventDefault(); send(form.action); });
  var inspect = form.querySelector("button.inspect");
  if (inspect) {
    inspect.addEventListener("click", function () {
      fetch("/api/inspect", {method: "POST", body: new FormData(form)})
        .then(function (r) { return r.json(); })
        .then(function (j) { form.querySelector("textarea[name=config]").value = JSON.stringify(j.config || j, null, 2); });
    });
  }
});
`
