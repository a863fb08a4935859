package mcpapi

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/kanmap/internal/adapters/server/common"
)

// registerReadTools registers board and projection reads.
func registerReadTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanmap.get_board",
			mcp.WithDescription("Return the columns and tasks of one view plus the sync flags."),
			viewOption(),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, bad := viewArg(req)
			if bad != nil {
				return bad, nil
			}
			return jsonResult("get_board", common.Board(board, view))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanmap.get_projection",
			mcp.WithDescription("Return positioned kanban nodes, mind-map nodes and mind-map edges."),
		),
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return jsonResult("get_projection", board.Project(nil))
		},
	)
}

// registerColumnTools registers column mutations.
func registerColumnTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanmap.create_column",
			mcp.WithDescription("Append a \"New column\" to the right of the board."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			col, err := board.CreateColumn(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_column", common.MapColumn(col))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanmap.rename_column",
			mcp.WithDescription("Rename one column. A blank title keeps the old one; duplicates get a numeric suffix."),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Column identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("New column title")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			columnID, err := req.RequireString("column_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			col, err := common.PatchColumn(ctx, board, columnID, common.ColumnPatchRequest{Title: &title})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("rename_column", col)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanmap.move_column",
			mcp.WithDescription("Move one column on the canvas. Its tasks are not touched."),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Column identifier")),
			mcp.WithNumber("x", mcp.Required(), mcp.Description("Canvas x")),
			mcp.WithNumber("y", mcp.Required(), mcp.Description("Canvas y")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				ColumnID string  `json:"column_id"`
				X        float64 `json:"x"`
				Y        float64 `json:"y"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			col, err := board.MoveColumn(ctx, args.ColumnID, args.X, args.Y)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("move_column", common.MapColumn(col))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanmap.set_done_column",
			mcp.WithDescription("Flag one column as the single done column."),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Column identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			columnID, err := req.RequireString("column_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			cols, err := board.SetDoneColumn(ctx, columnID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("set_done_column", map[string]any{
				"columns": common.MapColumns(cols),
			})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanmap.delete_column",
			mcp.WithDescription("Delete one column. Non-empty columns are refused unless the board cascades deletes."),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Column identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			columnID, err := req.RequireString("column_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			if err := board.DeleteColumn(ctx, columnID); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_column", map[string]any{
				"deleted": columnID,
			})
		},
	)
}

// registerTaskTools registers task mutations.
func registerTaskTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanmap.save_task",
			mcp.WithDescription("Create a task, or fully update task_id when it is given."),
			viewOption(),
			actorOption(),
			mcp.WithString("task_id", mcp.Description("Task to update; omit to create")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Markdown description")),
			mcp.WithString("status", mcp.Description("Column id (defaults to the first column)")),
			mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum("", "lowest", "low", "medium", "high", "highest")),
			mcp.WithString("deadline", mcp.Description("Deadline as YYYY-MM-DD")),
			mcp.WithString("username", mcp.Description("Assignee")),
			mcp.WithString("parent_id", mcp.Description("Parent task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, bad := viewArg(req)
			if bad != nil {
				return bad, nil
			}
			var args struct {
				common.TaskRequest
				TaskID string `json:"task_id"`
				View   string `json:"view"`
				Actor  string `json:"actor"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Title) == "" {
				return mcp.NewToolResultError(`validation: required argument "title" not found`), nil
			}
			task, err := common.SaveTask(withActor(ctx, req), board, view, args.TaskRequest, args.TaskID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("save_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanmap.update_task",
			mcp.WithDescription("Patch selected fields of one task. Empty priority, deadline or parent_id clears the field."),
			viewOption(),
			actorOption(),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("title", mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Markdown description")),
			mcp.WithString("status", mcp.Description("Column id")),
			mcp.WithString("priority", mcp.Description("Priority")),
			mcp.WithString("deadline", mcp.Description("Deadline as YYYY-MM-DD")),
			mcp.WithString("username", mcp.Description("Assignee")),
			mcp.WithString("parent_id", mcp.Description("Parent task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, bad := viewArg(req)
			if bad != nil {
				return bad, nil
			}
			var args struct {
				common.TaskPatchRequest
				TaskID string `json:"task_id"`
				View   string `json:"view"`
				Actor  string `json:"actor"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.TaskID) == "" {
				return mcp.NewToolResultError(`validation: required argument "task_id" not found`), nil
			}
			task, err := common.PatchTask(withActor(ctx, req), board, view, args.TaskID, args.TaskPatchRequest)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanmap.delete_task",
			mcp.WithDescription("Delete one task. With cascade its direct children go too; otherwise they become roots."),
			viewOption(),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithBoolean("cascade", mcp.Description("Also delete direct children")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, bad := viewArg(req)
			if bad != nil {
				return bad, nil
			}
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			if err := board.DeleteTask(ctx, view, taskID, req.GetBool("cascade", false)); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_task", map[string]any{
				"deleted": taskID,
			})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanmap.drop_task",
			mcp.WithDescription("Release a dragged task at canvas coordinates; moves it between or within columns."),
			viewOption(),
			actorOption(),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithNumber("x", mcp.Required(), mcp.Description("Dragged node left edge")),
			mcp.WithNumber("y", mcp.Required(), mcp.Description("Dragged node top edge")),
			mcp.WithNumber("width", mcp.Description("Dragged node width")),
			mcp.WithNumber("height", mcp.Description("Dragged node height")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, bad := viewArg(req)
			if bad != nil {
				return bad, nil
			}
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			x, err := req.RequireFloat("x")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			y, err := req.RequireFloat("y")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			res, err := common.DropTask(withActor(ctx, req), board, view, taskID, common.DropRequest{
				X:      x,
				Y:      y,
				Width:  req.GetFloat("width", 0),
				Height: req.GetFloat("height", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("drop_task", res)
		},
	)
}

// registerSyncTools registers the sync toggle.
func registerSyncTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanmap.toggle_sync",
			mcp.WithDescription("Toggle kanban/mind-map sync. Turning it on copies the kanban tasks over the mind map."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return jsonResult("toggle_sync", map[string]any{
				"is_synced": board.ToggleSync(ctx),
			})
		},
	)
}

// registerSaveTool registers the explicit host save.
func registerSaveTool(srv *mcpserver.MCPServer, saver common.BoardSaver) {
	srv.AddTool(
		mcp.NewTool(
			"kanmap.save_board",
			mcp.WithDescription("Push the current board to the host store now."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if err := saver.SaveNow(ctx); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("save_board", map[string]any{
				"saved": true,
			})
		},
	)
}
