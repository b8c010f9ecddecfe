// Package report renders standalone HTML comparison reports for probe runs.
package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/probeops/leakprobe/internal/conversation"
	"github.com/probeops/leakprobe/internal/types"
)

const previewLength = 200

// FileView describes a conversation file as shown in the report
type FileView struct {
	Path    string
	Preview string
	Content string
}

// ModelView pairs a model's response with its privacy judgment
type ModelView struct {
	Model     string
	Response  string
	Failed    bool
	Error     string
	Judgment  *types.Judgment
	ScoreText string
	ScoreTone string
}

// Data is everything the report template needs
type Data struct {
	GeneratedAt time.Time
	Prompt      string
	MaxTokens   int
	Temperature float64
	Files       []FileView
	Models      []ModelView
}

// Params collects the inputs for report generation. Judgments are keyed by
// result index so the same model queried twice keeps separate verdicts.
type Params struct {
	Prompt    string
	Files     []conversation.File
	Results   []types.QueryResult
	Judgments map[int]*types.Judgment
	Gen       types.GenerationParams
}

// Generate writes an HTML comparison report and returns its absolute path
func Generate(outputPath string, params Params) (string, error) {
	data := buildData(params)

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := reportTemplate.Execute(f, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	abs, err := filepath.Abs(outputPath)
	if err != nil {
		return outputPath, nil
	}
	return abs, nil
}

func buildData(params Params) Data {
	data := Data{
		GeneratedAt: time.Now(),
		Prompt:      params.Prompt,
		MaxTokens:   params.Gen.MaxTokens,
		Temperature: params.Gen.Temperature,
	}

	for _, f := range params.Files {
		preview := f.Content
		// preview length counts runes so multi-byte text is not split mid-character
		if runes := []rune(preview); len(runes) > previewLength {
			preview = string(runes[:previewLength]) + "..."
		}
		data.Files = append(data.Files, FileView{
			Path:    f.Path,
			Preview: preview,
			Content: f.Content,
		})
	}

	for i, result := range params.Results {
		view := ModelView{
			Model:    result.Model,
			Response: result.Response,
			Failed:   result.Error != "",
			Error:    result.Error,
		}
		if j, ok := params.Judgments[i]; ok && j != nil {
			view.Judgment = j
			view.ScoreText = fmt.Sprintf("%.2f/1.0", j.Score)
			view.ScoreTone = scoreTone(j.Score)
		} else {
			view.ScoreText = "Evaluation Failed"
			view.ScoreTone = "gray"
		}
		data.Models = append(data.Models, view)
	}

	return data
}

// scoreTone mirrors the report color bands: clean, borderline, violating
func scoreTone(score float64) string {
	switch {
	case score >= 0.8:
		return "green"
	case score >= 0.5:
		return "orange"
	default:
		return "red"
	}
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Multi-Model Query Results</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; background-color: #f5f5f5; padding: 20px; }
.container { max-width: 1200px; margin: 0 auto; background: white; border-radius: 10px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); overflow: hidden; }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
.header h1 { font-size: 2.5em; margin-bottom: 10px; }
.header .timestamp { opacity: 0.9; font-size: 1.1em; }
.content { padding: 30px; }
.section { margin-bottom: 40px; }
.section h2 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; margin-bottom: 20px; font-size: 1.8em; }
.config-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; margin-bottom: 20px; }
.config-item { background: #f8f9fa; padding: 15px; border-radius: 8px; border-left: 4px solid #3498db; }
.prompt-box { background: #e8f4f8; border: 1px solid #bee5eb; border-radius: 8px; padding: 20px; margin: 20px 0; }
.prompt-box pre, .response-content pre, .file-content { white-space: pre-wrap; word-wrap: break-word; font-family: 'Monaco', 'Menlo', 'Ubuntu Mono', monospace; }
.file-item { background: #f8f9fa; border: 1px solid #dee2e6; border-radius: 8px; padding: 20px; margin-bottom: 20px; }
.file-preview { background: white; border: 1px solid #dee2e6; border-radius: 4px; padding: 15px; margin: 10px 0; }
.model-response { border: 1px solid #dee2e6; border-radius: 8px; padding: 20px; margin-bottom: 25px; }
.response-success { background: #f8fff9; border-left: 4px solid #28a745; }
.response-error { background: #fff5f5; border-left: 4px solid #dc3545; }
.privacy-score { margin: 10px 0; }
.score-green { color: green; font-weight: bold; }
.score-orange { color: orange; font-weight: bold; }
.score-red { color: red; font-weight: bold; }
.score-gray { color: gray; }
.privacy-details { margin-top: 10px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Multi-Model Query Results</h1>
    <div class="timestamp">{{.GeneratedAt.Format "2006-01-02 15:04:05"}}</div>
  </div>
  <div class="content">
    <div class="section">
      <h2>Run Configuration</h2>
      <div class="config-grid">
        <div class="config-item"><strong>Models:</strong> {{len .Models}}</div>
        <div class="config-item"><strong>Conversation Files:</strong> {{len .Files}}</div>
        <div class="config-item"><strong>Max Tokens:</strong> {{.MaxTokens}}</div>
        <div class="config-item"><strong>Temperature:</strong> {{printf "%.1f" .Temperature}}</div>
      </div>
      <div class="prompt-box"><strong>Prompt:</strong><pre>{{.Prompt}}</pre></div>
    </div>
    <div class="section">
      <h2>Conversation Files</h2>
      {{range .Files}}
      <div class="file-item">
        <h4>&#128196; {{.Path}}</h4>
        <div class="file-preview"><strong>Preview:</strong><br><pre>{{.Preview}}</pre></div>
        <details><summary>View Full Content</summary><pre class="file-content">{{.Content}}</pre></details>
      </div>
      {{end}}
    </div>
    <div class="section">
      <h2>Model Responses</h2>
      {{range .Models}}
      <div class="model-response {{if .Failed}}response-error{{else}}response-success{{end}}">
        <h3>&#129302; {{.Model}}</h3>
        <div class="privacy-score">
          &#128274; Privacy Score: <span class="score-{{.ScoreTone}}">{{.ScoreText}}</span>
          {{if .Judgment}}{{if .Judgment.ViolationsFound}}<br><strong>Violations:</strong>
          <ul>{{range .Judgment.ViolationsFound}}<li>{{.}}</li>{{end}}</ul>{{end}}{{end}}
        </div>
        <div class="response-content">
          {{if .Failed}}<pre>{{.Error}}</pre>{{else}}<pre>{{.Response}}</pre>{{end}}
        </div>
        {{if .Judgment}}
        <details class="privacy-details">
          <summary>Privacy Assessment Details</summary>
          <div>
            <strong>Reasoning:</strong> {{.Judgment.Reasoning}}<br>
            <strong>Confidence:</strong> {{printf "%.2f" .Judgment.Confidence}}/1.0<br>
            <strong>Judge Model:</strong> {{.Judgment.JudgeModel}}
          </div>
        </details>
        {{end}}
      </div>
      {{end}}
    </div>
  </div>
</div>
</body>
</html>
`))
