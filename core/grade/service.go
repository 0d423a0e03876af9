package grade

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/group"
	"github.com/trezcool/labtrack/core/lab"
)

// canvasImportPrefix marks lab descriptions copied in by the LMS import; it
// is stripped from the export's checkpoint column name.
const canvasImportPrefix = "Imported from Canvas:"

var csvHeader = []string{"Student", "ID", "SIS User ID", "SIS Login ID", "Section"}

type (
	// Export is a rendered grade report, ready for LMS import.
	Export struct {
		FileName string
		Content  []byte
	}

	Service struct {
		labs    *lab.Service
		classes *class.Service
		groups  group.Repository
		mail    core.EmailService
	}
)

func NewService(labs *lab.Service, classes *class.Service, groups group.Repository, mail core.EmailService) *Service {
	return &Service{labs: labs, classes: classes, groups: groups, mail: mail}
}

// Export reconciles roster, enrollment, group membership and checkpoint
// outcomes for a lab into a CSV grade report.
func (svc *Service) Export(ctx context.Context, labID string) (Export, error) {
	lb, err := svc.labs.Get(ctx, labID)
	if err != nil {
		return Export{}, errors.Wrap(err, "getting lab")
	}

	defs, err := svc.labs.ResolveCheckpoints(ctx, lb)
	if err != nil {
		return Export{}, err
	}
	pointMap := make(map[int]float64, len(defs))
	for _, def := range defs {
		pointMap[def.Number] = float64(def.EffectivePoints())
	}
	pointsPossible := lab.PointsPossible(lb, defs)

	acc := newAccumulator()

	// seed one row per actively-enrolled identity
	students, err := svc.classes.ActiveStudents(ctx, lb.ClassID)
	if err != nil {
		return Export{}, errors.Wrap(err, "querying active students")
	}
	for _, enr := range students {
		acc.seed(enr.DisplayName(), enr.UserExternalID)
	}

	// overlay the authoritative roster
	roster, err := svc.classes.Roster(ctx, lb.ClassID)
	if err != nil {
		return Export{}, errors.Wrap(err, "querying roster")
	}
	for _, entry := range roster {
		acc.overlayRoster(entry)
	}

	// apply group scores
	groups, err := svc.groups.QueryGroupsByLab(ctx, labID)
	if err != nil {
		return Export{}, errors.Wrap(err, "querying groups")
	}
	for _, grp := range groups {
		score := groupScore(grp, pointMap, pointsPossible)
		for _, m := range grp.Members {
			memberScore := score
			if !m.IsPresent() {
				memberScore = 0
			}
			acc.assign(m, memberScore)
		}
	}

	acc.finalizeRosterZeros()

	content, err := acc.render(checkpointColumnName(lb), pointsPossible)
	if err != nil {
		return Export{}, errors.Wrap(err, "rendering export")
	}
	return Export{FileName: exportFileName(lb), Content: content}, nil
}

// EmailExport renders the lab's grade report and mails it as a CSV
// attachment.
func (svc *Service) EmailExport(ctx context.Context, labID string, recipients []string) (Export, error) {
	lb, err := svc.labs.Get(ctx, labID)
	if err != nil {
		return Export{}, errors.Wrap(err, "getting lab")
	}
	exp, err := svc.Export(ctx, labID)
	if err != nil {
		return Export{}, err
	}

	to := make([]mail.Address, 0, len(recipients))
	for _, rcpt := range recipients {
		to = append(to, mail.Address{Address: core.CleanString(rcpt, true /* lower */)})
	}
	msg := &core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Grade export: %s", checkpointColumnName(lb)),
		BodyStr: "The grade export you requested is attached.",
	}
	if err = msg.Attach(bytes.NewReader(exp.Content), exp.FileName, "text/csv"); err != nil {
		return Export{}, errors.Wrap(err, "attaching export")
	}
	svc.mail.SendMessages(msg)
	return exp, nil
}

// groupScore sums each checkpoint's contribution (override when present,
// else points when Passed, else 0) and clamps to [0, pointsPossible].
func groupScore(grp group.Group, pointMap map[int]float64, pointsPossible float64) float64 {
	var score float64
	for _, p := range grp.Progress {
		switch {
		case p.PointsOverride != nil:
			score += *p.PointsOverride
		case p.Status == group.CheckpointPassed:
			score += pointMap[p.Number]
		}
	}
	if score < 0 {
		score = 0
	}
	if score > pointsPossible {
		score = pointsPossible
	}
	return score
}

func checkpointColumnName(lb lab.Lab) string {
	desc := strings.TrimSpace(strings.TrimPrefix(lb.Description, canvasImportPrefix))
	if desc != "" {
		return desc
	}
	if title := strings.TrimSpace(lb.Title); title != "" {
		return title
	}
	return "Lab " + lb.ID
}

func exportFileName(lb lab.Lab) string {
	name := strings.TrimSpace(lb.Title)
	if name == "" {
		name = lb.ID
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return name + "_grades.csv"
}

// formatScore strips trailing zeros (2.5000 -> 2.5, 3.000 -> 3).
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// row is one accumulated export identity; it is derived at export time and
// never persisted.
type row struct {
	name       string
	externalID string
	sisUserID  string
	sisLoginID string
	section    string
	score      float64
	hasScore   bool
	fromRoster bool
}

// accumulator collects export rows in insertion order: enrollment-seeded
// rows first, then roster-overlay extras, then group-only extras.
type accumulator struct {
	rows   []*row
	byID   map[string]*row
	byName map[string]*row
}

func newAccumulator() *accumulator {
	return &accumulator{
		byID:   map[string]*row{},
		byName: map[string]*row{},
	}
}

func (acc *accumulator) add(r *row) *row {
	acc.rows = append(acc.rows, r)
	acc.index(r)
	return r
}

func (acc *accumulator) index(r *row) {
	if r.externalID != "" {
		acc.byID[r.externalID] = r
	}
	if key := core.NormalizeName(r.name); key != "" {
		if _, ok := acc.byName[key]; !ok {
			acc.byName[key] = r
		}
	}
}

// resolve matches by exact id key first, else by normalized name.
func (acc *accumulator) resolve(externalID, name string) *row {
	if externalID != "" {
		if r, ok := acc.byID[externalID]; ok {
			return r
		}
	}
	if key := core.NormalizeName(name); key != "" {
		if r, ok := acc.byName[key]; ok {
			return r
		}
	}
	return nil
}

func (acc *accumulator) seed(name, externalID string) {
	acc.add(&row{name: name, externalID: externalID})
}

func (acc *accumulator) overlayRoster(entry class.RosterEntry) {
	r := acc.resolve(entry.ExternalID, entry.Name)
	if r == nil {
		r = acc.add(&row{})
	}
	if entry.Name != "" {
		r.name = entry.Name
	}
	if entry.ExternalID != "" {
		r.externalID = entry.ExternalID
	}
	r.sisUserID = entry.SISUserID
	r.sisLoginID = entry.SISLoginID
	r.section = entry.Section
	r.fromRoster = true
	acc.index(r)
}

func (acc *accumulator) assign(m group.GroupMember, score float64) {
	r := acc.resolve(m.UserExternalID, m.Name)
	if r == nil {
		r = acc.add(&row{name: m.Name, externalID: m.UserExternalID})
	}
	r.score = score
	r.hasScore = true
}

// finalizeRosterZeros zero-fills roster rows never touched by a group
// assignment so they export as 0 rather than blank.
func (acc *accumulator) finalizeRosterZeros() {
	for _, r := range acc.rows {
		if r.fromRoster && !r.hasScore {
			r.score = 0
			r.hasScore = true
		}
	}
}

func (acc *accumulator) render(columnName string, pointsPossible float64) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(append(append([]string{}, csvHeader...), columnName)); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"Points Possible", "", "", "", "", formatScore(pointsPossible)}); err != nil {
		return nil, err
	}
	for _, r := range acc.rows {
		score := ""
		if r.hasScore {
			score = formatScore(r.score)
		}
		if err := w.Write([]string{r.name, r.externalID, r.sisUserID, r.sisLoginID, r.section, score}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
