package tui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/reactforge/reactforge/internal/config"
)

// SettingsPaneModel manages the build-settings form overlay.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.BuildConfig
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	// Form field bindings
	saveTarget     string
	maxConcurrency string
	outputDir      string
	failFast       bool
	dryRun         bool
	minify         bool
	sourceMap      bool
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.BuildConfig, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,

		saveTarget:     "global",
		maxConcurrency: strconv.Itoa(cfg.MaxConcurrency),
		outputDir:      cfg.OutputDir,
		failFast:       cfg.FailFast,
		dryRun:         cfg.DryRun,
		minify:         cfg.Minify,
		sourceMap:      cfg.SourceMap,
	}

	m.buildForm()
	return m
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global (~/.reactforge/config.json)", "global"),
					huh.NewOption("Project (.reactforge/config.json)", "project"),
				).
				Value(&m.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("maxConcurrency").
				Title("Max Concurrency").
				Value(&m.maxConcurrency).
				Placeholder("4").
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return fmt.Errorf("must be a positive integer")
					}
					return nil
				}),

			huh.NewInput().
				Key("outputDir").
				Title("Output Directory").
				Value(&m.outputDir).
				Placeholder("dist"),
		).Title("Execution"),

		huh.NewGroup(
			huh.NewConfirm().
				Key("failFast").
				Title("Fail Fast").
				Value(&m.failFast),

			huh.NewConfirm().
				Key("dryRun").
				Title("Dry Run").
				Value(&m.dryRun),

			huh.NewConfirm().
				Key("minify").
				Title("Minify Bundles").
				Value(&m.minify),

			huh.NewConfirm().
				Key("sourceMap").
				Title("Emit Source Maps").
				Value(&m.sourceMap),
		).Title("Build Flags"),
	)
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			// Cancel without saving
			m.visible = false
			m.saved = false
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.applyFormToConfig()

		targetPath := m.globalPath
		if m.saveTarget == "project" {
			targetPath = m.projectPath
		}

		if err := config.Save(m.config, targetPath); err != nil {
			m.err = err
			m.saved = false
		} else {
			m.saved = true
			m.err = nil
		}

		if m.saved {
			m.visible = false
		}
	}

	return m, cmd
}

// applyFormToConfig copies form field values back to the config struct.
func (m *SettingsPaneModel) applyFormToConfig() {
	if n, err := strconv.Atoi(m.maxConcurrency); err == nil && n > 0 {
		m.config.MaxConcurrency = n
	}
	if m.outputDir != "" {
		m.config.OutputDir = m.outputDir
	}
	m.config.FailFast = m.failFast
	m.config.DryRun = m.dryRun
	m.config.Minify = m.minify
	m.config.SourceMap = m.sourceMap
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string

	if m.saved && m.form.State == huh.StateCompleted {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			Render("✓ Settings saved successfully!")
	} else if m.err != nil {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Build Settings")

	body := style.Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v && m.form != nil {
		// Rebuild form to reset state
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}
