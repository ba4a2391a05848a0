package analysis

const (
	msgMismatch      = "Fjala nuk përputhet me tekstin e pritur."
	msgLowConfidence = "Besueshmëri e ulët nga OCR: kontrollo manualisht këtë fjalë (mund të jetë gabim i nxjerrjes, jo i drejtshkrimit)."
	msgUnknown       = "Fjalë e panjohur në korpus; mund të jetë gabim drejtshkrimi ose emër i përveçëm."
	msgFuzzy         = "Mund të ketë gabim drejtshkrimi. Shiko sugjerimet."
	msgEndingE       = "Dyshohet mungesë e 'ë' (shpesh në fund të fjalës). Shiko sugjerimet."
	msgCedilla       = "Dyshohet gabim te 'ç' / 'c'. Shiko sugjerimet."
	msgDouble        = "Dyshohet shkronjë e dyfishtë (shpesh gabim OCR ose gabim drejtshkrimi)."
	msgDiacritics    = "Dyshohet gabim te ë/e ose ç/c. Shiko sugjerimet."
)

type issueMeta struct {
	source     Source
	severity   Severity
	likelihood float64
}

func metaFor(t IssueType, hasSuggestions bool) issueMeta {
	switch t {
	case IssueLowConfidence:
		return issueMeta{SourceOCR, SeverityWarning, 0.2}
	case IssueMismatchExpected:
		return issueMeta{SourceOrthography, SeverityError, 0.95}
	case IssueDiacritics, IssueDoubleConsonant:
		return issueMeta{SourceOrthography, SeverityWarning, 0.8}
	case IssueEndingE, IssueCedilla:
		return issueMeta{SourceOrthography, SeverityWarning, 0.85}
	case IssueUnknownWord:
		if hasSuggestions {
			return issueMeta{SourceOrthography, SeverityWarning, 0.6}
		}
		return issueMeta{SourceOrthography, SeverityInfo, 0.35}
	default:
		return issueMeta{SourceOrthography, SeverityInfo, 0.5}
	}
}

func messageFor(t IssueType, hasSuggestions bool) string {
	switch t {
	case IssueLowConfidence:
		return msgLowConfidence
	case IssueMismatchExpected:
		return msgMismatch
	case IssueEndingE:
		return msgEndingE
	case IssueCedilla:
		return msgCedilla
	case IssueDoubleConsonant:
		return msgDouble
	case IssueDiacritics:
		return msgDiacritics
	}
	if hasSuggestions {
		return msgFuzzy
	}
	return msgUnknown
}

func newIssue(t IssueType, position int, token string, suggestions []string, conf *float64) Issue {
	if suggestions == nil {
		suggestions = []string{}
	}
	m := metaFor(t, len(suggestions) > 0)
	return Issue{
		Position:      position,
		Token:         token,
		Type:          t,
		Message:       messageFor(t, len(suggestions) > 0),
		Recognized:    token,
		Suggestions:   suggestions,
		OCRConfidence: conf,
		Source:        m.source,
		Severity:      m.severity,
		Likelihood:    m.likelihood,
	}
}
