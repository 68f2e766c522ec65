package domain

// CourseSummary is the flat record produced by catalog extraction.
// Every source shape (catalog API, linked courses, browse page state)
// maps into this model, and the CSV exporter maps from it.
type CourseSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Description  string   `json:"description"`
	PartnerNames []string `json:"partnerNames"`
	Skills       []string `json:"skills"`

	// Free-form upstream: some endpoints send "4-6 hours", others a number.
	LearningHours string `json:"avgLearningHours"`
	Rating        string `json:"rating"`
}

// CourseDetail is the flat view of a single course detail response.
type CourseDetail struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Level       string   `json:"level"`
	Workload    string   `json:"workload"`
	Skills      string   `json:"skills"` // first five, comma-joined
	Partners    []string `json:"partners"`
	Instructors []string `json:"instructors"`
	Rating      string   `json:"rating"`
	RatingCount string   `json:"ratingCount"`
}

// NotAvailable fills detail fields the gateway did not return.
const NotAvailable = "N/A"
