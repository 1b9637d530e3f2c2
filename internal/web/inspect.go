package web

import (
	"sort"

	"github.com/JonMunkholm/icumatch/internal/config"
	"github.com/JonMunkholm/icumatch/internal/core"
)

type inspectFile struct {
	Field       string            `json:"field"`
	Name        string            `json:"name"`
	Rows        int               `json:"rows"`
	Header      []string          `json:"header"`
	Suggestions []core.Suggestion `json:"suggestions"`
	Delimiter   string            `json:"delimiter,omitempty"`
}

type inspectResponse struct {
	Files  []inspectFile  `json:"files"`
	Config config.Profile `json:"config"`
}

// attributeFields are searched for birth, name and sex columns, in order.
var attributeFields = []string{fieldInfo, fieldEpisodes, fieldCultures}

// inspect proposes a column for every role of the uploaded tables and
// assembles the proposals into a config the client can edit and submit.
func inspect(files uploads) inspectResponse {
	var resp inspectResponse

	fields := make([]string, 0, len(files))
	for f := range files {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	roles := core.SuggestRoles(files.first(fieldEpisodes), files.first(fieldCultures))
	attrs := make(map[string][]core.Suggestion)

	for _, field := range fields {
		for _, t := range files[field] {
			f := inspectFile{Field: field, Name: t.Name, Rows: t.Len(), Header: t.Header}
			switch field {
			case fieldEpisodes:
				f.Suggestions = append(f.Suggestions, roles.Episodes...)
			case fieldCultures:
				f.Suggestions = append(f.Suggestions, roles.Cultures...)
			}
			if field != fieldCensus && field != fieldCases && field != fieldRegistry {
				a := core.SuggestAttributes(t)
				if _, seen := attrs[field]; !seen {
					attrs[field] = a
				}
				f.Suggestions = append(f.Suggestions, a...)
				if col, ok := found(a, "combined"); ok {
					values, _ := t.Column(col)
					f.Delimiter = core.DetectDelimiter(values)
				}
			}
			if field == fieldCensus {
				col, ok := core.FindColumn(core.CensusIDCandidates, t.Header)
				f.Suggestions = []core.Suggestion{{Role: "id", Column: col, Found: ok}}
			}
			resp.Files = append(resp.Files, f)
		}
	}

	p := &resp.Config
	p.Episodes.ID, _ = found(roles.Episodes, "id")
	p.Episodes.Admit, _ = found(roles.Episodes, "admit")
	p.Episodes.Discharge, _ = found(roles.Episodes, "discharge")
	p.Cultures.ID, _ = found(roles.Cultures, "id")
	p.Cultures.CollectedAt, _ = found(roles.Cultures, "collected_at")
	p.Cultures.Ward, _ = found(roles.Cultures, "ward")
	p.Cultures.Organism, _ = found(roles.Cultures, "organism")

	for _, field := range attributeFields {
		a, ok := attrs[field]
		if !ok {
			continue
		}
		id, ok := found(a, "id")
		if !ok {
			continue
		}
		if col, ok := found(a, "birth"); ok && p.Attributes.Birth == nil {
			p.Attributes.Birth = &config.AttributeProfile{Source: field, ID: id, Value: col}
		}
		if col, ok := found(a, "name"); ok && p.Attributes.Name == nil {
			p.Attributes.Name = &config.AttributeProfile{Source: field, ID: id, Value: col}
		}
		if p.Attributes.Sex != nil {
			continue
		}
		if col, ok := found(a, "combined"); ok {
			p.Attributes.Sex = &config.AttributeProfile{
				Source: field, ID: id, Value: col, Combined: true,
				Delimiter: delimiterOf(resp.Files, field), Position: "first",
			}
		} else if col, ok := found(a, "sex"); ok {
			p.Attributes.Sex = &config.AttributeProfile{Source: field, ID: id, Value: col}
		}
	}

	if t := files.first(fieldRegistry); t != nil {
		if col, ok := core.FindColumn(core.IDCandidates, t.Header); ok {
			p.Registry = &config.RegistryProfile{ID: col}
		}
	}
	return resp
}

func found(s []core.Suggestion, role string) (string, bool) {
	for _, sg := range s {
		if sg.Role == role && sg.Found {
			return sg.Column, true
		}
	}
	return "", false
}

func delimiterOf(files []inspectFile, field string) string {
	for _, f := range files {
		if f.Field == field && f.Delimiter != "" {
			return f.Delimiter
		}
	}
	return ""
}
