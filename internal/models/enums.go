package models

import "strings"

// Taxonomy enums for the process-document pipeline. Values mirror the
// vocabulary the batch classification prompt asks the model for; names
// are the snake_case spellings accepted on input.

type SubjectEnum string

const (
	SubjectManufacturer       SubjectEnum = "Manufacturer"
	SubjectHealthcareProvider SubjectEnum = "Healthcare Provider"
	SubjectRegulatory         SubjectEnum = "Regulatory Authority"
	SubjectUnknown            SubjectEnum = "unknown"
)

type PhaseEnum string

const (
	PhaseDesign           PhaseEnum = "Design"
	PhaseDevelopment      PhaseEnum = "Development"
	PhasePremarket        PhaseEnum = "Pre-market"
	PhaseOperation        PhaseEnum = "Operation"
	PhaseIncidentResponse PhaseEnum = "Incident Response"
	PhaseDisposal         PhaseEnum = "Disposal"
	PhaseUnknown          PhaseEnum = "unknown"
)

type PriorityEnum string

const (
	PriorityShall   PriorityEnum = "Shall"
	PriorityShould  PriorityEnum = "Should"
	PriorityUnknown PriorityEnum = "unknown"
)

type RoleEnum string

const (
	RoleDevEngineer       RoleEnum = "Development Engineer"
	RoleSecurityArchitect RoleEnum = "Security Architect"
	RoleQAEngineer        RoleEnum = "Quality Assurance"
	RoleRegulatoryAffairs RoleEnum = "Regulatory Affairs"
	RoleProductManager    RoleEnum = "Product Manager"
	RoleOpsEngineer       RoleEnum = "Operations Engineer"
	RoleIncidentResponder RoleEnum = "Incident Response Specialist"
	RoleOther             RoleEnum = "Other"
	RoleUnknown           RoleEnum = "unknown"
)

type StatusEnum string

const (
	StatusNotStarted     StatusEnum = "Not Started"
	StatusInProgressEnum StatusEnum = "In Progress"
	StatusCompliant      StatusEnum = "Compliant"
	StatusNonCompliant   StatusEnum = "Non-Compliant"
	StatusNotApplicable  StatusEnum = "Not Applicable"
	StatusUnknown        StatusEnum = "unknown"
)

// enumSet carries the accepted spellings of one enum: the canonical
// values plus the snake_case member names they are known by.
type enumSet struct {
	values  []string
	names   []string
	unknown string
}

var (
	subjectSet = enumSet{
		values:  []string{string(SubjectManufacturer), string(SubjectHealthcareProvider), string(SubjectRegulatory)},
		names:   []string{"manufacturer", "healthcare_provider", "regulatory_authority"},
		unknown: string(SubjectUnknown),
	}
	phaseSet = enumSet{
		values: []string{
			string(PhaseDesign), string(PhaseDevelopment), string(PhasePremarket),
			string(PhaseOperation), string(PhaseIncidentResponse), string(PhaseDisposal),
		},
		names:   []string{"design", "development", "premarket", "operation", "incident_response", "disposal"},
		unknown: string(PhaseUnknown),
	}
	prioritySet = enumSet{
		values:  []string{string(PriorityShall), string(PriorityShould)},
		names:   []string{"shall", "should"},
		unknown: string(PriorityUnknown),
	}
	roleSet = enumSet{
		values: []string{
			string(RoleDevEngineer), string(RoleSecurityArchitect), string(RoleQAEngineer),
			string(RoleRegulatoryAffairs), string(RoleProductManager), string(RoleOpsEngineer),
			string(RoleIncidentResponder), string(RoleOther),
		},
		names: []string{
			"dev_engineer", "security_architect", "qa_engineer", "regulatory_affairs",
			"product_manager", "ops_engineer", "incident_responder", "other",
		},
		unknown: string(RoleUnknown),
	}
	statusSet = enumSet{
		values: []string{
			string(StatusNotStarted), string(StatusInProgressEnum), string(StatusCompliant),
			string(StatusNonCompliant), string(StatusNotApplicable),
		},
		names:   []string{"not_started", "in_progress", "compliant", "non_compliant", "not_applicable"},
		unknown: string(StatusUnknown),
	}
)

// foldEnum lowercases and strips spaces, hyphens and underscores so
// that "Development Engineer", "development_engineer" and
// "development-engineer" all compare equal.
func foldEnum(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

func (e enumSet) normalize(input string) string {
	folded := foldEnum(input)
	for i, v := range e.values {
		if folded == foldEnum(v) || folded == foldEnum(e.names[i]) {
			return v
		}
	}
	return e.unknown
}

// Lenient parsers for LLM-produced vocabulary. Unrecognized input maps
// to the unknown member instead of erroring.

func NormalizeSubject(input string) SubjectEnum   { return SubjectEnum(subjectSet.normalize(input)) }
func NormalizePhase(input string) PhaseEnum       { return PhaseEnum(phaseSet.normalize(input)) }
func NormalizePriority(input string) PriorityEnum { return PriorityEnum(prioritySet.normalize(input)) }
func NormalizeRole(input string) RoleEnum         { return RoleEnum(roleSet.normalize(input)) }
func NormalizeStatus(input string) StatusEnum     { return StatusEnum(statusSet.normalize(input)) }
