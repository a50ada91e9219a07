// Copyright 2026 The FOSYS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rbac

// Action names. These are the canonical lower-case identifiers checked by
// the catalog; they are data, not behavior, and are owned by this package
// alone so route handlers never restate them.
const (
	// Project management
	ActionCreateProject   = "create_project"
	ActionEditProject     = "edit_project"
	ActionDeleteProject   = "delete_project"
	ActionViewAllProjects = "view_all_projects"

	// Task flow
	ActionAssignTask           = "assign_task"
	ActionViewAssignedTasks    = "view_assigned_tasks"
	ActionUpdateOwnTaskStatus  = "update_own_task_status"
	ActionCompleteAssignedTask = "complete_assigned_task"
	ActionEditTask             = "edit_task"
	ActionMarkMilestone        = "mark_milestone"

	// Pull requests
	ActionRaisePR        = "raise_pr"
	ActionApprovePR      = "approve_pr"
	ActionRejectPR       = "reject_pr"
	ActionViewPRComments = "view_pr_comments"

	// Dashboards
	ActionViewProjectDashboard = "view_project_dashboard"
	ActionViewProjectProgress  = "view_project_progress"
	ActionViewEmployeeProgress = "view_employee_progress"
)
