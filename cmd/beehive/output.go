package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"beehive/internal/models"
)

func writeJSON(payload any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeTaskList(tasks []models.Task) error {
	for _, task := range tasks {
		if err := writePlain("%s\n", formatTaskLine(task)); err != nil {
			return err
		}
	}
	return nil
}

func formatTaskLine(task models.Task) string {
	fields := []string{task.ID, task.State, fmt.Sprintf("p%d", task.Priority)}
	if task.Role != "" {
		fields = append(fields, task.Role)
	}
	fields = append(fields, firstLine(task.Description))
	return strings.Join(fields, "  ")
}

func writeTaskDetail(task models.Task) error {
	lines := []string{
		fmt.Sprintf("id: %s", task.ID),
		fmt.Sprintf("project: %s", task.Project),
		fmt.Sprintf("state: %s", task.State),
		fmt.Sprintf("priority: %d", task.Priority),
		fmt.Sprintf("created_at: %s", formatTime(task.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(task.UpdatedAt)),
	}

	if task.Role != "" {
		lines = append(lines, fmt.Sprintf("role: %s", task.Role))
	}
	if len(task.Dependencies) > 0 {
		lines = append(lines, fmt.Sprintf("dependencies: %s", strings.Join(task.Dependencies, ", ")))
	}
	if task.ClaimedBy != "" {
		lines = append(lines, fmt.Sprintf("claimed_by: %s", task.ClaimedBy))
	}
	if task.ParentTask != "" {
		lines = append(lines, fmt.Sprintf("parent_task: %s", task.ParentTask))
	}
	if task.ReviewsTask != "" {
		lines = append(lines, fmt.Sprintf("reviews_task: %s", task.ReviewsTask))
	}
	if task.PRURL != "" {
		lines = append(lines, fmt.Sprintf("pr_url: %s", task.PRURL))
	}
	if task.Status != "" {
		lines = append(lines, fmt.Sprintf("status: %s", task.Status))
	}
	if task.TestCommand != "" {
		lines = append(lines, fmt.Sprintf("test_command: %s", task.TestCommand))
	}
	if task.Summary != "" {
		lines = append(lines, fmt.Sprintf("summary: %s", task.Summary))
	}
	if task.Details != "" {
		lines = append(lines, fmt.Sprintf("details: %s", task.Details))
	}
	lines = append(lines, fmt.Sprintf("description: %s", task.Description))

	for _, line := range lines {
		if err := writePlain("%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func writeTask(task models.Task, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(task)
	}
	return writeTaskDetail(task)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
