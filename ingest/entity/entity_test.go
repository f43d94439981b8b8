package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JasonAskew/knowledge-sub001/model"
)

func TestExtractProductAbbreviation(t *testing.T) {
	abbrev := AbbreviationTable{"HL": "Home Loan"}
	mentions := Extract("Applicants for the HL product must provide two payslips.", abbrev)
	assert.Contains(t, mentions, Mention{CanonicalText: "Home Loan", Type: model.EntityTypeProduct})
}

func TestExtractInstitutionCode(t *testing.T) {
	mentions := Extract("Refer to branch code ABC1234 for details.", nil)
	found := false
	for _, m := range mentions {
		if m.Type == model.EntityTypeInstitution && m.CanonicalText == "ABC1234" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractAmount(t *testing.T) {
	mentions := Extract("The minimum deposit is $5,000 at a rate of 4.5%.", nil)
	var amounts []string
	for _, m := range mentions {
		if m.Type == model.EntityTypeAmount {
			amounts = append(amounts, m.CanonicalText)
		}
	}
	assert.NotEmpty(t, amounts)
}

func TestCollapseNearDuplicates(t *testing.T) {
	mentions := Extract("The Home Loan and Home Loans products are both available.", nil)
	count := 0
	for _, m := range mentions {
		if m.Type == model.EntityTypeTerm {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractNoMatches(t *testing.T) {
	mentions := Extract("lowercase text with nothing to find", nil)
	assert.Empty(t, mentions)
}
