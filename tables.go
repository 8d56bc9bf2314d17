package sheetdb

// Factory workflow tables. Column order is the header order of each worksheet.
var (
	UsersTable = TableSchema{
		Name:          "users",
		Columns:       []string{"id", "username", "email", "password_hash", "role", "active", "created_at", "updated_at", "is_deleted"},
		Configuration: true,
	}
	MachinesTable = TableSchema{
		Name:          "machines",
		Columns:       []string{"machine_id", "name", "kind", "location", "status", "is_active", "created_at", "updated_at", "is_deleted"},
		Identity:      "machine_id",
		Configuration: true,
	}
	ProjectsTable = TableSchema{
		Name:     "projects",
		Columns:  []string{"project_id", "name", "client", "description", "status", "start_date", "end_date", "created_by", "created_at", "updated_at", "is_deleted"},
		Identity: "project_id",
	}
	TasksTable = TableSchema{
		Name:     "tasks",
		Columns:  []string{"task_id", "project_id", "title", "description", "priority", "status", "assigned_to", "machine_id", "due_date", "started_at", "completed_at", "created_by", "created_at", "updated_at", "is_deleted"},
		Identity: "task_id",
	}
	FilingTasksTable = TableSchema{
		Name:     "filing_tasks",
		Columns:  []string{"filing_task_id", "project_id", "part_name", "quantity", "completed_quantity", "priority", "status", "assigned_to", "machine_id", "started_at", "completed_at", "created_at", "updated_at", "is_deleted"},
		Identity: "filing_task_id",
	}
	FabricationTasksTable = TableSchema{
		Name:     "fabrication_tasks",
		Columns:  []string{"fabrication_task_id", "project_id", "part_name", "material", "quantity", "completed_quantity", "priority", "status", "assigned_to", "machine_id", "started_at", "completed_at", "created_at", "updated_at", "is_deleted"},
		Identity: "fabrication_task_id",
	}
	TimeLogsTable = TableSchema{
		Name:     "time_logs",
		Columns:  []string{"log_id", "task_id", "task_type", "user_id", "action", "timestamp", "duration_minutes", "notes", "created_at", "updated_at", "is_deleted"},
		Identity: "log_id",
	}
	AttendanceTable = TableSchema{
		Name:     "attendance",
		Columns:  []string{"attendance_id", "user_id", "date", "check_in", "check_out", "hours_worked", "status", "created_at", "updated_at", "is_deleted"},
		Identity: "attendance_id",
	}
	TaskAssignmentsTable = TableSchema{
		Name:     "task_assignments",
		Columns:  []string{"assignment_id", "task_id", "task_type", "user_id", "assigned_by", "assigned_at", "status", "created_at", "updated_at", "is_deleted"},
		Identity: "assignment_id",
	}
	NotificationsTable = TableSchema{
		Name:     "notifications",
		Columns:  []string{"notification_id", "user_id", "message", "kind", "read", "created_at", "updated_at", "is_deleted"},
		Identity: "notification_id",
	}
	SettingsTable = TableSchema{
		Name:          "settings",
		Columns:       []string{"key", "value", "description", "status", "created_at", "updated_at", "is_deleted"},
		Identity:      "key",
		Configuration: true,
	}
)

var defaultModels = map[string]string{
	"User":            "users",
	"Machine":         "machines",
	"Project":         "projects",
	"Task":            "tasks",
	"FilingTask":      "filing_tasks",
	"FabricationTask": "fabrication_tasks",
	"TimeLog":         "time_logs",
	"Attendance":      "attendance",
	"TaskAssignment":  "task_assignments",
	"Notification":    "notifications",
	"Setting":         "settings",
}

// DefaultRegistry returns the registry for the factory workflow tables.
func DefaultRegistry() *Registry {
	r := MustRegistry(
		UsersTable,
		MachinesTable,
		ProjectsTable,
		TasksTable,
		FilingTasksTable,
		FabricationTasksTable,
		TimeLogsTable,
		AttendanceTable,
		TaskAssignmentsTable,
		NotificationsTable,
		SettingsTable,
	)
	for model, table := range defaultModels {
		r.MapModel(model, table)
	}
	return r
}
