package utils

import (
	"bufio"
	"bytes"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const KeyHEAD = "HEAD"
const KeyTags = "tags"
const KeyBranch = "branch"
const KeyBuildDate = "buildDate"

// BuildVersion is parsed from the "key: value ..." text the build embeds,
// one key per line.
type BuildVersion struct {
	data      map[string][]string
	HEAD      *string             `json:"HEAD,omitempty"`
	Tags      []string            `json:"tags,omitempty"`
	Branch    *string             `json:"branch,omitempty"`
	BuildDate *time.Time          `json:"buildDate,omitempty"`
}

func first(vals []string) *string {
	if len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

func NewBuildVersion(rawText []byte) (*BuildVersion, error) {
	bv := &BuildVersion{data: make(map[string][]string)}

	scanner := bufio.NewScanner(bytes.NewReader(rawText))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			logrus.WithField("line", line).Debug("skipping build version line")
			continue
		}
		key = strings.TrimSpace(key)
		bv.data[key] = append(bv.data[key], strings.Fields(rest)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	bv.HEAD = first(bv.data[KeyHEAD])
	bv.Branch = first(bv.data[KeyBranch])
	if tags := bv.data[KeyTags]; len(tags) > 0 {
		bv.Tags = append([]string(nil), tags...)
	}

	if buildDateStr := first(bv.data[KeyBuildDate]); buildDateStr != nil {
		buildDate, err := time.Parse(time.RFC3339, *buildDateStr)
		if err != nil {
			logrus.WithField("buildDate", *buildDateStr).Warn("failed to parse build date")
		} else if !buildDate.IsZero() {
			bv.BuildDate = &buildDate
		}
	}

	return bv, nil
}

// Get returns every value recorded for key.
func (bv *BuildVersion) Get(key string) []string {
	return bv.data[key]
}

func (bv *BuildVersion) String() string {
	if bv == nil {
		return "unknown"
	}
	var sb strings.Builder
	if bv.HEAD != nil {
		sb.WriteString(*bv.HEAD)
	} else {
		sb.WriteString("unknown")
	}
	if bv.Branch != nil {
		sb.WriteString(" (" + *bv.Branch + ")")
	}
	if len(bv.Tags) > 0 {
		sb.WriteString(" tags=" + strings.Join(bv.Tags, ","))
	}
	if bv.BuildDate != nil {
		sb.WriteString(" built " + bv.BuildDate.Format(time.RFC3339))
	}
	return sb.String()
}
