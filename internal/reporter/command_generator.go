package reporter

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/urlhandler"
	"github.com/rs/zerolog"
)

// Generated command files, keyed in the map returned by Generate.
const (
	CommandTestSSL    = "testssl"
	CommandNikto      = "nikto"
	CommandNuclei     = "nuclei"
	CommandWPScan     = "wpscan"
	CommandJoomScan   = "joomscan"
	CommandDroopescan = "droopescan"
	CommandSharePoint = "sharepoint"
	CommandTargets    = "targets"
	CommandDomains    = "domains"
	CommandIPs        = "ips"
	CommandRunAll     = "run_all"
)

const (
	allTargetsFile = "all_targets.txt"
	domainsFile    = "domains.txt"
	ipsFile        = "ips.txt"
)

type commandTarget struct {
	URL       string
	Base      string
	Authority string
	SafeName  string
}

type nucleiGroup struct {
	Label     string
	Templates string
	ListFile  string
}

type scriptStep struct {
	Label  string
	Script string
}

type commandData struct {
	Targets  []commandTarget
	Lines    []string
	ListFile string
	Groups   []nucleiGroup
	Steps    []scriptStep
}

// cmsTool maps a detected CMS to its dedicated scanner.
type cmsTool struct {
	group   string
	names   []string
	label   string
	script  string
	command string
}

var cmsTools = []cmsTool{
	{group: "wordpress", names: []string{"wordpress", "woocommerce"}, label: "Running wpscan (WordPress)", script: "run_wpscan.sh", command: CommandWPScan},
	{group: "joomla", names: []string{"joomla"}, label: "Running joomscan (Joomla)", script: "run_joomscan.sh", command: CommandJoomScan},
	{group: "drupal", names: []string{"drupal"}, label: "Running droopescan (Drupal)", script: "run_droopescan.sh", command: CommandDroopescan},
	{group: "sharepoint", names: []string{"sharepoint"}, label: "Running SharePoint enumeration", script: "run_sharepoint_enum.sh", command: CommandSharePoint},
}

// CommandGenerator writes follow-up scanner scripts and target lists for the succeeded
// targets of a run.
type CommandGenerator struct {
	dir         string
	templates   *template.Template
	fileManager *common.FileManager
	logger      zerolog.Logger
}

// NewCommandGenerator parses the embedded command templates.
func NewCommandGenerator(dir string, logger zerolog.Logger) (*CommandGenerator, error) {
	if dir == "" {
		dir = DefaultCommandsDir
	}
	logger = logger.With().Str("component", "CommandGenerator").Logger()

	tmpl, err := template.New("commands").
		Funcs(template.FuncMap{"sq": shellQuote, "inc": func(i int) int { return i + 1 }}).
		ParseFS(templatesFS, commandTemplatesGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command templates: %w", err)
	}

	return &CommandGenerator{
		dir:         dir,
		templates:   tmpl,
		fileManager: common.NewFileManager(logger),
		logger:      logger,
	}, nil
}

// Generate writes the command files and returns their paths keyed by tool.
func (g *CommandGenerator) Generate(rs *models.ResultSet) (map[string]string, error) {
	if rs == nil || rs.FinishedAt.IsZero() {
		return nil, ErrNotFinalized
	}
	if err := g.fileManager.EnsureDirectory(g.dir, DirPermissions); err != nil {
		return nil, err
	}

	var all, https []commandTarget
	groups := make(map[string][]commandTarget)
	for _, r := range rs.Sorted() {
		if r.Status != models.StatusSucceeded {
			continue
		}
		t := newCommandTarget(r.Target)
		all = append(all, t)
		if r.Target.Scheme == "https" {
			https = append(https, t)
		}

		techs := make(map[string]struct{})
		for _, name := range r.Enrichment.TechnologyNames() {
			techs[strings.ToLower(name)] = struct{}{}
		}
		for _, tool := range cmsTools {
			for _, name := range tool.names {
				if _, ok := techs[name]; ok {
					groups[tool.group] = append(groups[tool.group], t)
					break
				}
			}
		}
	}

	generated := make(map[string]string)
	var steps []scriptStep
	w := &commandWriter{g: g, generated: generated}

	if len(https) > 0 {
		w.render("testssl_cmds.txt", "testssl_cmds.txt.tmpl", commandData{Targets: https}, FilePermissions, "")
		w.render("run_testssl.sh", "run_testssl.sh.tmpl", commandData{ListFile: "testssl_cmds.txt"}, ScriptPermissions, CommandTestSSL)
		steps = append(steps, scriptStep{Label: "Running testssl.sh scans", Script: "run_testssl.sh"})
	}

	if len(all) > 0 {
		w.render("nikto_targets.txt", "targets.txt.tmpl", commandData{Targets: all}, FilePermissions, "")
		w.render("run_nikto.sh", "run_nikto.sh.tmpl", commandData{ListFile: "nikto_targets.txt"}, ScriptPermissions, CommandNikto)
		steps = append(steps, scriptStep{Label: "Running nikto scans", Script: "run_nikto.sh"})

		var nuclei []nucleiGroup
		for _, tool := range cmsTools[:3] {
			if len(groups[tool.group]) == 0 {
				continue
			}
			listFile := tool.group + "_targets.txt"
			w.render(listFile, "targets.txt.tmpl", commandData{Targets: groups[tool.group]}, FilePermissions, "")
			nuclei = append(nuclei, nucleiGroup{Label: titleCase(tool.group), Templates: tool.group, ListFile: listFile})
		}
		w.render("run_nuclei.sh", "run_nuclei.sh.tmpl", commandData{ListFile: allTargetsFile, Groups: nuclei}, ScriptPermissions, CommandNuclei)
		steps = append(steps, scriptStep{Label: "Running nuclei scans", Script: "run_nuclei.sh"})
	}

	for _, tool := range cmsTools {
		targets := groups[tool.group]
		if len(targets) == 0 {
			continue
		}
		data := commandData{Targets: targets}
		if tool.group == "sharepoint" {
			data.ListFile = "sharepoint_targets.txt"
			w.render(data.ListFile, "targets.txt.tmpl", commandData{Targets: targets}, FilePermissions, "")
		}
		w.render(tool.script, tool.script+".tmpl", data, ScriptPermissions, tool.command)
		steps = append(steps, scriptStep{Label: tool.label, Script: tool.script})
	}

	w.render(allTargetsFile, "targets.txt.tmpl", commandData{Targets: all}, FilePermissions, CommandTargets)
	domains, ips := hostLists(all)
	w.render(domainsFile, "lines.txt.tmpl", commandData{Lines: domains}, FilePermissions, CommandDomains)
	if len(ips) > 0 {
		w.render(ipsFile, "lines.txt.tmpl", commandData{Lines: ips}, FilePermissions, CommandIPs)
	}
	w.render("run_all_scans.sh", "run_all_scans.sh.tmpl", commandData{Steps: steps}, ScriptPermissions, CommandRunAll)

	if w.err != nil {
		return generated, w.err
	}

	g.logger.Info().
		Str("dir", g.dir).
		Int("targets", len(all)).
		Int("files", len(generated)).
		Msg("Command files generated")
	return generated, nil
}

// commandWriter stops at the first failure.
type commandWriter struct {
	g         *CommandGenerator
	generated map[string]string
	err       error
}

func (w *commandWriter) render(fileName, templateName string, data commandData, perm os.FileMode, key string) {
	if w.err != nil {
		return
	}

	var buf bytes.Buffer
	if err := w.g.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		w.err = fmt.Errorf("failed to render %s: %w", fileName, err)
		return
	}

	path := filepath.Join(w.g.dir, fileName)
	if err := w.g.fileManager.WriteFileAtomic(path, buf.Bytes(), perm); err != nil {
		w.err = err
		return
	}
	if key != "" {
		w.generated[key] = path
	}
}

func newCommandTarget(t models.CanonicalTarget) commandTarget {
	base := t.Scheme + "://" + t.Authority() + strings.TrimSuffix(t.Path, "/")
	return commandTarget{
		URL:       t.URL(),
		Base:      base,
		Authority: t.Authority(),
		SafeName:  urlhandler.SanitizeFilename(t.Authority()),
	}
}

// hostLists returns the sorted distinct authorities and IP hosts of targets.
func hostLists(targets []commandTarget) ([]string, []string) {
	domainSet := make(map[string]struct{})
	ipSet := make(map[string]struct{})
	for _, t := range targets {
		domainSet[t.Authority] = struct{}{}

		host := t.Authority
		if h, _, err := net.SplitHostPort(t.Authority); err == nil {
			host = h
		}
		host = strings.Trim(host, "[]")
		if net.ParseIP(host) != nil {
			ipSet[host] = struct{}{}
		}
	}
	return sortedKeys(domainSet), sortedKeys(ipSet)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
