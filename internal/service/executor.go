package service

import (
	"context"
	"fmt"
	"time"

	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
	"github.com/erdemdnmz2/WebQuery/internal/pool"
	"github.com/erdemdnmz2/WebQuery/internal/registry"
)

// QueryExecutor runs SQL on a target database as the calling user. It
// resolves the target through the registry, rehydrates the user's credential
// from the cache, acquires a pooled handle, and brackets the attempt with an
// execution log record.
type QueryExecutor struct {
	pool        *pool.Pool
	registry    *registry.Registry
	credentials *CredentialCache
	logRepo     core.ExecutionLogRepository

	maxRows      int
	warnRows     int
	queryTimeout time.Duration
}

func NewQueryExecutor(p *pool.Pool, reg *registry.Registry, creds *CredentialCache, logRepo core.ExecutionLogRepository, maxRows, warnRows int, queryTimeout time.Duration) *QueryExecutor {
	return &QueryExecutor{
		pool:         p,
		registry:     reg,
		credentials:  creds,
		logRepo:      logRepo,
		maxRows:      maxRows,
		warnRows:     warnRows,
		queryTimeout: queryTimeout,
	}
}

var _ core.QueryRunner = (*QueryExecutor)(nil)

// Run executes the query under the user's cached database credential.
// The plaintext password never leaves this call's stack.
func (e *QueryExecutor) Run(ctx context.Context, user *core.User, server, database, query string, approvedExecution bool) (result *core.QueryResult, err error) {
	target, err := e.registry.Resolve(server, database)
	if err != nil {
		return nil, err
	}

	password, err := e.credentials.Fetch(user.ID)
	if err != nil {
		return nil, err
	}

	logID, err := e.logRepo.Begin(user, query, server, approvedExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution log: %w", err)
	}
	defer func() {
		var finishErr error
		if err != nil {
			finishErr = e.logRepo.Finish(logID, false, 0, err.Error())
		} else {
			finishErr = e.logRepo.Finish(logID, true, int64(result.RowCount), "")
		}
		if finishErr != nil {
			logger.Error.Printf("executor: failed to finalize log %d: %v", logID, finishErr)
		}
	}()

	db, err := e.pool.Acquire(ctx, pool.ConnectionSpec{
		Technology: target.Technology,
		Username:   user.Username,
		Password:   password,
		Server:     target.Address,
		Database:   target.Database,
	}, user.ID)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("execution error: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	resultRows := []map[string]any{}
	truncated := false

	for rows.Next() {
		if len(resultRows) >= e.maxRows {
			truncated = true
			break
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err = rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		rowMap := make(map[string]any)
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = val
			}
		}
		resultRows = append(resultRows, rowMap)
	}
	if !truncated {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("execution error: %w", err)
		}
	}

	rowCount := len(resultRows)
	message := fmt.Sprintf("%d rows affected", rowCount)
	if truncated {
		message = fmt.Sprintf("more than %d rows found, showing first %d", rowCount, e.maxRows)
	}
	if rowCount >= e.warnRows {
		logger.Info.Printf("executor: query by %s returned %d rows", user.Username, rowCount)
	}

	result = &core.QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  rowCount,
		Truncated: truncated,
		Message:   message,
	}
	return result, nil
}
