package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var genderSynonyms = map[string]Gender{
	"homem":     GenderMan,
	"masculino": GenderMan,
	"male":      GenderMan,
	"man":       GenderMan,
	"men":       GenderMan,
	"senhora":   GenderWoman,
	"mulher":    GenderWoman,
	"feminino":  GenderWoman,
	"female":    GenderWoman,
	"woman":     GenderWoman,
	"women":     GenderWoman,
	"crianças":  GenderChildren,
	"criancas":  GenderChildren,
	"criança":   GenderChildren,
	"crianca":   GenderChildren,
	"kids":      GenderChildren,
	"children":  GenderChildren,
	"infantil":  GenderChildren,
	"child":     GenderChildren,
}

var (
	feminineCategoryTerms = []string{"WOMAN", "WOMEN", "SENHORA", "FEMININO", "MULHER", "FEMALE", "LADY", "LADIES"}
	childrenCategoryTerms = []string{"KIDS", "CHILDREN", "CRIANÇA", "CRIANÇAS", "INFANTIL", "CHILD", "BABY", "BEBÊ"}
)

// NormalizeGender maps a free-text gender to one of the three departments.
// Unknown or empty values default to GenderMan.
func NormalizeGender(value string) Gender {
	key := strings.ToLower(norm.NFC.String(strings.TrimSpace(value)))
	if g, ok := genderSynonyms[key]; ok {
		return g
	}
	return GenderMan
}

// InferGender derives the department from category keywords.
// Feminine terms take precedence over children terms.
func InferGender(category string) Gender {
	upper := FoldKey(category)
	if upper == "" {
		return GenderMan
	}
	for _, term := range feminineCategoryTerms {
		if strings.Contains(upper, term) {
			return GenderWoman
		}
	}
	for _, term := range childrenCategoryTerms {
		if strings.Contains(upper, term) {
			return GenderChildren
		}
	}
	return GenderMan
}

// ResolveGender applies an explicit gender when present, otherwise infers it from the category
func ResolveGender(explicit *string, category string) Gender {
	if explicit != nil {
		return NormalizeGender(*explicit)
	}
	return InferGender(category)
}
