package models

// DomainDefinition is one entry of the domain taxonomy. It is loaded once per
// run and never modified afterwards.
type DomainDefinition struct {
	ID              string `json:"domainId" yaml:"domainId"`
	Name            string `json:"domainName" yaml:"domainName"`
	QuestionText    string `json:"questionText" yaml:"questionText"`
	DescriptionText string `json:"descriptionText" yaml:"descriptionText"`
}

// DesignElementPrompt is a single prompt derived from a numbered design element
// in a domain description, or the bare question when the domain has none.
type DesignElementPrompt struct {
	DomainID  string `json:"domainId"`
	ElementID string `json:"elementId"`
	Question  string `json:"question"`
	Prompt    string `json:"prompt"`
}
