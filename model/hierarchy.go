package model

// Institution, Division, Category and Product form the read-mostly
// taxonomy populated at ingestion from the hierarchy classifier
// (spec.md §3 "Hierarchy nodes", §4.4).
type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Division struct {
	ID            string `json:"id"`
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
}

type Category struct {
	ID         string `json:"id"`
	DivisionID string `json:"division_id"`
	Name       string `json:"name"`
}

type Product struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// HierarchyTable is the configured keyword table the classifier scores
// documents against (spec.md §4.4): Institution -> Division -> Category
// -> Products, with keyword hints at each level.
type HierarchyTable struct {
	Institution string             `yaml:"institution"`
	Divisions   []DivisionTemplate `yaml:"divisions"`
}

type DivisionTemplate struct {
	Name       string             `yaml:"name"`
	Keywords   []string           `yaml:"keywords"`
	Categories []CategoryTemplate `yaml:"categories"`
}

type CategoryTemplate struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Products []string `yaml:"products"`
}

// HierarchyResult is the outcome of classifying one document. An empty
// Division means low confidence (spec.md §4.4, §7 ClassificationLowConfidence).
type HierarchyResult struct {
	Division   string
	Category   string
	Products   []string
	Confidence float64
}
