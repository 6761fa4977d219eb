package auth

const (
	RoleEmployee    = "Employee"
	RoleManager     = "Manager"
	RoleHR          = "HR"
	RoleSystemAdmin = "SystemAdmin"
)

const (
	PermOrgRead              = "org.read"
	PermOrgWrite             = "org.write"
	PermEmployeesRead        = "org.employees.read"
	PermEmployeesWrite       = "org.employees.write"
	PermTemplatesRead        = "questionnaire.templates.read"
	PermTemplatesWrite       = "questionnaire.templates.write"
	PermAppraisalsRead       = "appraisal.read"
	PermAppraisalsWrite      = "appraisal.write"
	PermAppraisalsInitiate   = "appraisal.initiate"
	PermEvaluationsRead      = "evaluation.read"
	PermEvaluationsSelf      = "evaluation.self"
	PermEvaluationsReview    = "evaluation.review"
	PermEvaluationsFinalize  = "evaluation.finalize"
	PermEvaluationsCalibrate = "evaluation.calibrate"
	PermGoalsRead            = "goals.read"
	PermGoalsWrite           = "goals.write"
	PermReportsRead          = "reports.read"
	PermReportsExport        = "reports.export"
	PermRemindersSend        = "reminders.send"
	PermAuditRead            = "audit.read"
	PermSystemAdmin          = "admin.system"
)

var DefaultPermissions = []string{
	PermOrgRead,
	PermOrgWrite,
	PermEmployeesRead,
	PermEmployeesWrite,
	PermTemplatesRead,
	PermTemplatesWrite,
	PermAppraisalsRead,
	PermAppraisalsWrite,
	PermAppraisalsInitiate,
	PermEvaluationsRead,
	PermEvaluationsSelf,
	PermEvaluationsReview,
	PermEvaluationsFinalize,
	PermEvaluationsCalibrate,
	PermGoalsRead,
	PermGoalsWrite,
	PermReportsRead,
	PermReportsExport,
	PermRemindersSend,
	PermAuditRead,
	PermSystemAdmin,
}

// RolePermissions is the static capability table. Route access is decided by
// looking a permission up here (via role_permissions rows seeded from this
// table), not by role checks scattered through handlers.
var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermOrgRead,
		PermEmployeesRead,
		PermTemplatesRead,
		PermEvaluationsRead,
		PermEvaluationsSelf,
		PermGoalsRead,
		PermGoalsWrite,
	},
	RoleManager: {
		PermOrgRead,
		PermEmployeesRead,
		PermTemplatesRead,
		PermAppraisalsRead,
		PermEvaluationsRead,
		PermEvaluationsSelf,
		PermEvaluationsReview,
		PermEvaluationsFinalize,
		PermGoalsRead,
		PermGoalsWrite,
		PermReportsRead,
	},
	RoleHR: {
		PermOrgRead,
		PermOrgWrite,
		PermEmployeesRead,
		PermEmployeesWrite,
		PermTemplatesRead,
		PermTemplatesWrite,
		PermAppraisalsRead,
		PermAppraisalsWrite,
		PermAppraisalsInitiate,
		PermEvaluationsRead,
		PermEvaluationsSelf,
		PermEvaluationsReview,
		PermEvaluationsFinalize,
		PermEvaluationsCalibrate,
		PermGoalsRead,
		PermGoalsWrite,
		PermReportsRead,
		PermReportsExport,
		PermRemindersSend,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
	},
}
