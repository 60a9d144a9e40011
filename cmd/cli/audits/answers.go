package audits

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/auditdesk/internal/apiclient"
	pathutils "github.com/temirov/auditdesk/internal/utils/path"
)

const (
	answerAssignmentSeparatorConstant = "="
	answerNotesSeparatorConstant      = ":"
	answerFormatErrorTemplateConstant = "invalid answer %q (expected ITEM=yes|no|na[:notes])"
	answerItemErrorTemplateConstant   = "invalid checklist item %q in answer %q"
	answersFileReadTemplateConstant   = "unable to read answers file %s: %w"
	answersFileParseTemplateConstant  = "unable to parse answers file %s: %w"
	answersFileValueTemplateConstant  = "answers file %s, item %d: %w"
)

type checklistAnswer struct {
	ItemID   int64
	Response apiclient.ResponseValue
	Notes    string
}

// parseAnswerArgument reads "ITEM=VALUE" or "ITEM=VALUE:notes".
func parseAnswerArgument(rawAnswer string) (checklistAnswer, error) {
	itemPart, valuePart, found := strings.Cut(rawAnswer, answerAssignmentSeparatorConstant)
	if !found {
		return checklistAnswer{}, fmt.Errorf(answerFormatErrorTemplateConstant, rawAnswer)
	}

	itemID, parseError := strconv.ParseInt(strings.TrimSpace(itemPart), 10, 64)
	if parseError != nil || itemID <= 0 {
		return checklistAnswer{}, fmt.Errorf(answerItemErrorTemplateConstant, itemPart, rawAnswer)
	}

	responsePart, notes, _ := strings.Cut(valuePart, answerNotesSeparatorConstant)
	response, responseError := apiclient.ParseResponseValue(responsePart)
	if responseError != nil {
		return checklistAnswer{}, fmt.Errorf(answerFormatErrorTemplateConstant, rawAnswer)
	}

	return checklistAnswer{ItemID: itemID, Response: response, Notes: strings.TrimSpace(notes)}, nil
}

// answerFileEntry accepts either a bare response ("12: yes") or a mapping with response and notes.
type answerFileEntry struct {
	Response string `yaml:"response"`
	Notes    string `yaml:"notes"`
}

func (entry *answerFileEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		entry.Response = node.Value
		return nil
	}
	type plainEntry answerFileEntry
	var decoded plainEntry
	if decodeError := node.Decode(&decoded); decodeError != nil {
		return decodeError
	}
	*entry = answerFileEntry(decoded)
	return nil
}

// loadAnswersFile reads a YAML mapping of checklist item identifiers to answers, ordered by item.
func loadAnswersFile(filePath string) ([]checklistAnswer, error) {
	resolvedPath := pathutils.NewHomeExpander().Expand(strings.TrimSpace(filePath))
	content, readError := os.ReadFile(resolvedPath)
	if readError != nil {
		return nil, fmt.Errorf(answersFileReadTemplateConstant, resolvedPath, readError)
	}

	entries := map[int64]answerFileEntry{}
	if parseError := yaml.Unmarshal(content, &entries); parseError != nil {
		return nil, fmt.Errorf(answersFileParseTemplateConstant, resolvedPath, parseError)
	}

	answers := make([]checklistAnswer, 0, len(entries))
	for itemID, entry := range entries {
		response, responseError := apiclient.ParseResponseValue(entry.Response)
		if responseError != nil {
			return nil, fmt.Errorf(answersFileValueTemplateConstant, resolvedPath, itemID, responseError)
		}
		answers = append(answers, checklistAnswer{ItemID: itemID, Response: response, Notes: strings.TrimSpace(entry.Notes)})
	}
	sort.Slice(answers, func(left int, right int) bool {
		return answers[left].ItemID < answers[right].ItemID
	})
	return answers, nil
}
