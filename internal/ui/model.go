package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/roas/internal/converter"
	"github.com/nconklindev/roas/internal/schema"
	"github.com/nconklindev/roas/internal/types"
	"github.com/nconklindev/roas/internal/upload"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateFilePicker state = iota
	statePreview
	stateUploading
	stateComplete
	stateError
)

const maxCellWidth = 18

// Uploader performs the upload once the operator confirms.
type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (*types.UploadResult, error)
}

type Model struct {
	state        state
	filepicker   filepicker.Model
	sheetInput   textinput.Model
	spinner      spinner.Model
	table        table.Model
	uploader     Uploader
	selectedFile string
	preview      *upload.Preview
	mode         types.WriteMode
	result       *types.UploadResult
	err          error
	width        int
	height       int
}

type fileLoadedMsg struct {
	preview *upload.Preview
	err     error
}

type uploadCompleteMsg struct {
	result *types.UploadResult
	err    error
}

func InitialModel(uploader Uploader, defaultSheet string) Model {
	fp := filepicker.New()
	fp.AllowedTypes = converter.SupportedExtensions
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42"))
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	ti := textinput.New()
	ti.Placeholder = "Worksheet name"
	ti.CharLimit = 100
	ti.Width = 40
	ti.SetValue(defaultSheet)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42"))

	return Model{
		state:      stateFilePicker,
		filepicker: fp,
		sheetInput: ti,
		spinner:    sp,
		uploader:   uploader,
		mode:       types.ModeReplace,
	}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		height := msg.Height - 14
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)
		if m.preview != nil {
			m.table.SetWidth(msg.Width - 8)
		}

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case statePreview:
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				return m.reset()
			case "tab":
				m.toggleMode()
				return m, nil
			case "enter":
				if strings.TrimSpace(m.sheetInput.Value()) != "" {
					return m.startUpload()
				}
				return m, nil
			}
			var cmd tea.Cmd
			m.sheetInput, cmd = m.sheetInput.Update(msg)
			return m, cmd

		case stateUploading:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil

		case stateComplete, stateError:
			switch msg.String() {
			case "ctrl+c", "q", "esc":
				return m, tea.Quit
			case "enter":
				return m.reset()
			}
			return m, nil
		}

	case fileLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		if msg.preview.Kind == types.KindUnknown {
			m.err = schema.ErrUnknownFormat
			m.state = stateError
			return m, nil
		}
		m.preview = msg.preview
		m.table = previewTable(msg.preview.Data, m.width-8)
		m.state = statePreview
		return m, m.sheetInput.Focus()

	case uploadCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		m.state = stateComplete
		return m, nil

	case spinner.TickMsg:
		if m.state == stateUploading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m, loadFile(path)
		}

		return m, cmd
	}

	if m.state == statePreview {
		var cmd tea.Cmd
		m.sheetInput, cmd = m.sheetInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) toggleMode() {
	if m.mode == types.ModeReplace {
		m.mode = types.ModeAppend
	} else {
		m.mode = types.ModeReplace
	}
}

// reset returns to the file picker keeping the sheet name and mode.
func (m Model) reset() (Model, tea.Cmd) {
	m.state = stateFilePicker
	m.selectedFile = ""
	m.preview = nil
	m.result = nil
	m.err = nil
	m.sheetInput.Blur()
	return m, m.filepicker.Init()
}

func loadFile(path string) tea.Cmd {
	return func() tea.Msg {
		preview, err := upload.Inspect(path)
		return fileLoadedMsg{preview: preview, err: err}
	}
}

func (m Model) startUpload() (Model, tea.Cmd) {
	m.state = stateUploading
	m.sheetInput.Blur()

	req := upload.Request{
		InputFile: m.selectedFile,
		Data:      m.preview.Data,
		Sheet:     strings.TrimSpace(m.sheetInput.Value()),
		Mode:      m.mode,
	}
	uploader := m.uploader

	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			result, err := uploader.Upload(context.Background(), req)
			return uploadCompleteMsg{result: result, err: err}
		},
	)
}

func previewTable(data *types.FileData, width int) table.Model {
	if width < 20 {
		width = 80
	}

	var cols []table.Column
	used := 0
	for i, h := range data.Headers {
		w := len(h)
		for j := 0; j < len(data.Rows) && j < converter.PreviewRows; j++ {
			if i < len(data.Rows[j]) && len(data.Rows[j][i]) > w {
				w = len(data.Rows[j][i])
			}
		}
		if w > maxCellWidth {
			w = maxCellWidth
		}
		if w < 4 {
			w = 4
		}
		if used+w+2 > width && len(cols) > 0 {
			break
		}
		used += w + 2
		cols = append(cols, table.Column{Title: h, Width: w})
	}

	var rows []table.Row
	for j := 0; j < len(data.Rows) && j < converter.PreviewRows; j++ {
		row := make(table.Row, len(cols))
		copy(row, data.Rows[j])
		rows = append(rows, row)
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
		table.WithWidth(width),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(lipgloss.Color("#FFB84D"))
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)
	return t
}

func kindBadge(kind types.SchemaKind, detected bool) string {
	switch {
	case !detected:
		return WarningStyle.Render("⚠ Input type not detected yet")
	case kind == types.KindMCAI:
		return SuccessStyle.Render("🧠 Detected Input Type: MCAI Export")
	case kind == types.KindWhatConverts:
		return InfoStyle.Render("📞 Detected Input Type: WhatConverts Export")
	default:
		return ErrorStyle.Render("✗ Unknown file format")
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case statePreview:
		return m.viewPreview()
	case stateUploading:
		return m.viewUploading()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📊 ROAS Lead Sheet Builder"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select an MCAI or WhatConverts export (CSV or XLSX)"))
	s.WriteString("\n")
	s.WriteString(kindBadge(types.KindUnknown, false))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewPreview() string {
	var s strings.Builder
	p := m.preview

	s.WriteString(TitleStyle.Render("📊 Preview"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s • %d rows • %d columns",
		filepath.Base(m.selectedFile), len(p.Data.Rows), len(p.Data.Headers))))
	s.WriteString("\n")
	s.WriteString(kindBadge(p.Kind, true))
	s.WriteString("\n")

	if p.HasDates {
		s.WriteString(fmt.Sprintf("Leads from %s to %s\n",
			p.FirstDate.Format("Jan 2, 2006"), p.LastDate.Format("Jan 2, 2006")))
	}
	if len(p.Missing) > 0 {
		s.WriteString(ErrorStyle.Render("✗ Mandatory fields missing: " + strings.Join(p.Missing, ", ")))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.table.View())
	s.WriteString("\n\n")

	s.WriteString(LabelStyle.Render("Sheet: "))
	s.WriteString(m.sheetInput.View())
	s.WriteString("\n\n")

	s.WriteString(LabelStyle.Render("Mode:  "))
	for _, mode := range []types.WriteMode{types.ModeReplace, types.ModeAppend} {
		if mode == m.mode {
			s.WriteString(ActiveModeStyle.Render(string(mode)))
		} else {
			s.WriteString(InactiveModeStyle.Render(string(mode)))
		}
		s.WriteString(" ")
	}
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("tab: toggle mode • enter: upload • esc: choose another file • ctrl+c: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewUploading() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📊 Uploading..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Writing to %s (%s)", m.spinner.View(), strings.TrimSpace(m.sheetInput.Value()), m.mode))

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Upload Complete!"))
	s.WriteString("\n\n")
	s.WriteString(SuccessStyle.Render("✅ " + upload.Message(m.result, nil)))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Source: %s export\n", m.result.Kind))
	s.WriteString(fmt.Sprintf("Columns: %d\n", m.result.Columns))

	if m.result.FormatErr != nil {
		s.WriteString("\n")
		s.WriteString(WarningStyle.Render("⚠ Data written, but header formatting failed: " + m.result.FormatErr.Error()))
		s.WriteString("\n")
	}

	s.WriteString(HelpStyle.Render("enter: upload another file • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString("❌ " + m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("enter: choose another file • q: quit"))

	return BoxStyle.Render(s.String())
}
