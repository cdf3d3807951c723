package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("hr-agent-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	// 为所有CRUD操作注册Before和After回调
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", sqlStatement),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间静默SQL日志
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.Candidate{},
		&models.CandidateSkill{},
		&models.CandidateWorkExperience{},
		&models.CandidateEducation{},
		&models.CandidateProject{},
		&models.CandidateCertification{},
		&models.CandidateLanguage{},
		&models.Job{},
		&models.Resume{},
		&models.ChatConversation{},
		&models.Setting{},
		&models.OutboxMessage{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// CreateResume 创建简历提交记录
func (m *MySQL) CreateResume(ctx context.Context, resume *models.Resume) error {
	return m.db.WithContext(ctx).Create(resume).Error
}

// UpdateResumeStatus 更新简历处理状态与错误信息
func (m *MySQL) UpdateResumeStatus(ctx context.Context, submissionUUID, status, errMsg string) error {
	updates := map[string]interface{}{
		"processing_status": status,
		"error_message":     errMsg,
	}
	return m.db.WithContext(ctx).Model(&models.Resume{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(updates).Error
}

// GetResume 按提交UUID读取简历行
func (m *MySQL) GetResume(ctx context.Context, submissionUUID string) (*models.Resume, error) {
	var resume models.Resume
	err := m.db.WithContext(ctx).Where("submission_uuid = ?", submissionUUID).First(&resume).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resume, nil
}

// FindCandidateByEmail 按规范化邮箱查找候选人；未找到返回 (nil, nil)
func (m *MySQL) FindCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := m.db.WithContext(ctx).Where("primary_email = ?", email).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("按邮箱查找候选人失败: %w", err)
	}
	return &candidate, nil
}

// FindCandidateByID 按ID查找候选人；未找到返回 (nil, nil)
func (m *MySQL) FindCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := m.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("按ID查找候选人失败: %w", err)
	}
	return &candidate, nil
}

// CandidateGraphCommit 一次抽取落库的全部内容：候选人（新建或合并）、
// 整代替换的子表记录、简历行终态和同事务的发件箱事件。
type CandidateGraphCommit struct {
	SubmissionUUID string

	// 新建路径：Candidate 非nil；合并路径：ExistingCandidateID 非空且
	// TopLevelUpdates 只包含本次抽取中非空的顶层字段（非空值才覆盖）
	Candidate           *models.Candidate
	ExistingCandidateID string
	TopLevelUpdates     map[string]interface{}

	Skills          []models.CandidateSkill
	WorkExperiences []models.CandidateWorkExperience
	Educations      []models.CandidateEducation
	Projects        []models.CandidateProject
	Certifications  []models.CandidateCertification
	Languages       []models.CandidateLanguage

	OutboxEvent *models.OutboxMessage
}

// CommitCandidateGraph 在单个事务内提交候选人图：
// 候选人新建或按非空字段合并、子表全量删除后重插、简历行置为COMPLETED、
// 发件箱事件落库。任何一步失败整体回滚，简历行状态不变。
func (m *MySQL) CommitCandidateGraph(ctx context.Context, commit *CandidateGraphCommit) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.CommitCandidateGraph",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("resume.submission_uuid", commit.SubmissionUUID),
		attribute.Bool("candidate.merge", commit.ExistingCandidateID != ""),
	)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidateID string

		if commit.ExistingCandidateID != "" {
			candidateID = commit.ExistingCandidateID
			if len(commit.TopLevelUpdates) > 0 {
				if err := tx.Model(&models.Candidate{}).
					Where("candidate_id = ?", candidateID).
					Updates(commit.TopLevelUpdates).Error; err != nil {
					return fmt.Errorf("合并候选人顶层字段失败: %w", err)
				}
			}
		} else {
			if commit.Candidate == nil {
				return fmt.Errorf("既没有待创建的候选人也没有合并目标")
			}
			if err := tx.Create(commit.Candidate).Error; err != nil {
				return fmt.Errorf("创建候选人失败: %w", err)
			}
			candidateID = commit.Candidate.CandidateID
		}

		// 子表整代替换：全量删除后重插
		children := []interface{}{
			&models.CandidateSkill{},
			&models.CandidateWorkExperience{},
			&models.CandidateEducation{},
			&models.CandidateProject{},
			&models.CandidateCertification{},
			&models.CandidateLanguage{},
		}
		for _, child := range children {
			if err := tx.Where("candidate_id = ?", candidateID).Delete(child).Error; err != nil {
				return fmt.Errorf("删除候选人子表记录失败: %w", err)
			}
		}

		for i := range commit.Skills {
			commit.Skills[i].CandidateID = candidateID
		}
		if len(commit.Skills) > 0 {
			if err := tx.Create(&commit.Skills).Error; err != nil {
				return fmt.Errorf("写入技能记录失败: %w", err)
			}
		}
		for i := range commit.WorkExperiences {
			commit.WorkExperiences[i].CandidateID = candidateID
		}
		if len(commit.WorkExperiences) > 0 {
			if err := tx.Create(&commit.WorkExperiences).Error; err != nil {
				return fmt.Errorf("写入工作经历记录失败: %w", err)
			}
		}
		for i := range commit.Educations {
			commit.Educations[i].CandidateID = candidateID
		}
		if len(commit.Educations) > 0 {
			if err := tx.Create(&commit.Educations).Error; err != nil {
				return fmt.Errorf("写入教育经历记录失败: %w", err)
			}
		}
		for i := range commit.Projects {
			commit.Projects[i].CandidateID = candidateID
		}
		if len(commit.Projects) > 0 {
			if err := tx.Create(&commit.Projects).Error; err != nil {
				return fmt.Errorf("写入项目记录失败: %w", err)
			}
		}
		for i := range commit.Certifications {
			commit.Certifications[i].CandidateID = candidateID
		}
		if len(commit.Certifications) > 0 {
			if err := tx.Create(&commit.Certifications).Error; err != nil {
				return fmt.Errorf("写入证书记录失败: %w", err)
			}
		}
		for i := range commit.Languages {
			commit.Languages[i].CandidateID = candidateID
		}
		if len(commit.Languages) > 0 {
			if err := tx.Create(&commit.Languages).Error; err != nil {
				return fmt.Errorf("写入语言能力记录失败: %w", err)
			}
		}

		// 简历行置为终态
		if err := tx.Model(&models.Resume{}).
			Where("submission_uuid = ?", commit.SubmissionUUID).
			Updates(map[string]interface{}{
				"candidate_id":      candidateID,
				"processing_status": constants.ResumeStatusCompleted,
				"error_message":     "",
			}).Error; err != nil {
			return fmt.Errorf("更新简历状态失败: %w", err)
		}

		// 领域事件与业务数据同事务写入发件箱
		if commit.OutboxEvent != nil {
			if err := tx.Create(commit.OutboxEvent).Error; err != nil {
				return fmt.Errorf("写入发件箱事件失败: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// CandidateGraph 候选人及其全部子表记录，供读取端点使用
type CandidateGraph struct {
	Candidate       models.Candidate                 `json:"candidate"`
	Skills          []models.CandidateSkill          `json:"skills"`
	WorkExperiences []models.CandidateWorkExperience `json:"work_experiences"`
	Educations      []models.CandidateEducation      `json:"educations"`
	Projects        []models.CandidateProject        `json:"projects"`
	Certifications  []models.CandidateCertification  `json:"certifications"`
	Languages       []models.CandidateLanguage       `json:"languages"`
}

// GetCandidateGraph 读取候选人完整图；候选人不存在返回 (nil, nil)
func (m *MySQL) GetCandidateGraph(ctx context.Context, candidateID string) (*CandidateGraph, error) {
	candidate, err := m.FindCandidateByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, nil
	}

	graph := &CandidateGraph{Candidate: *candidate}
	db := m.db.WithContext(ctx)

	if err := db.Where("candidate_id = ?", candidateID).Find(&graph.Skills).Error; err != nil {
		return nil, err
	}
	if err := db.Where("candidate_id = ?", candidateID).Order("sort_order asc").Find(&graph.WorkExperiences).Error; err != nil {
		return nil, err
	}
	if err := db.Where("candidate_id = ?", candidateID).Order("sort_order asc").Find(&graph.Educations).Error; err != nil {
		return nil, err
	}
	if err := db.Where("candidate_id = ?", candidateID).Find(&graph.Projects).Error; err != nil {
		return nil, err
	}
	if err := db.Where("candidate_id = ?", candidateID).Find(&graph.Certifications).Error; err != nil {
		return nil, err
	}
	if err := db.Where("candidate_id = ?", candidateID).Find(&graph.Languages).Error; err != nil {
		return nil, err
	}
	return graph, nil
}

// ListCandidateViews 拼装会话引擎消费的候选人只读视图
func (m *MySQL) ListCandidateViews(ctx context.Context) ([]types.CandidateView, error) {
	var candidates []models.Candidate
	if err := m.db.WithContext(ctx).Order("created_at asc").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("查询候选人列表失败: %w", err)
	}

	views := make([]types.CandidateView, 0, len(candidates))
	for _, c := range candidates {
		view := types.CandidateView{
			ID:              c.CandidateID,
			Name:            c.Name,
			Email:           c.PrimaryEmail,
			Phone:           c.Phone,
			Location:        c.CurrentLocation,
			CareerLevel:     c.CareerLevel,
			Summary:         c.ProfileSummary,
			ExperienceYears: c.TotalExperienceYears,
		}

		var skills []models.CandidateSkill
		if err := m.db.WithContext(ctx).Where("candidate_id = ?", c.CandidateID).Find(&skills).Error; err != nil {
			return nil, err
		}
		for _, s := range skills {
			view.Skills = append(view.Skills, s.SkillName)
		}

		var works []models.CandidateWorkExperience
		if err := m.db.WithContext(ctx).Where("candidate_id = ?", c.CandidateID).
			Order("sort_order asc").Find(&works).Error; err != nil {
			return nil, err
		}
		for _, w := range works {
			view.WorkHistory = append(view.WorkHistory, types.WorkView{
				Company:        w.CompanyName,
				Position:       w.Position,
				DurationMonths: w.DurationMonths,
				IsCurrent:      w.IsCurrent,
			})
		}

		var edus []models.CandidateEducation
		if err := m.db.WithContext(ctx).Where("candidate_id = ?", c.CandidateID).
			Order("sort_order asc").Find(&edus).Error; err != nil {
			return nil, err
		}
		for _, e := range edus {
			view.Educations = append(view.Educations, types.EducationView{
				Institution: e.Institution,
				Degree:      e.Degree,
				Major:       e.Major,
			})
		}

		views = append(views, view)
	}
	return views, nil
}

// ListOpenJobs 返回状态为ACTIVE的岗位视图
func (m *MySQL) ListOpenJobs(ctx context.Context) ([]types.JobView, error) {
	var jobs []models.Job
	if err := m.db.WithContext(ctx).Where("status = ?", constants.JobStatusActive).
		Order("created_at asc").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("查询开放岗位失败: %w", err)
	}

	views := make([]types.JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, types.JobView{
			ID:                 j.JobID,
			Title:              j.Title,
			Location:           j.Location,
			JobType:            j.JobType,
			Description:        j.Description,
			RequiredSkills:     models.JSONToStringSlice(j.RequiredSkillsJSON),
			PreferredSkills:    models.JSONToStringSlice(j.PreferredSkillsJSON),
			MinExperienceYears: j.MinExperienceYears,
			MaxExperienceYears: j.MaxExperienceYears,
			SalaryMin:          j.SalaryMin,
			SalaryMax:          j.SalaryMax,
		})
	}
	return views, nil
}

// RecordChatTurn 持久化一轮会话，发件箱事件同事务写入
func (m *MySQL) RecordChatTurn(ctx context.Context, turn *models.ChatConversation, event *models.OutboxMessage) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(turn).Error; err != nil {
			return fmt.Errorf("写入会话轮次失败: %w", err)
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("写入发件箱事件失败: %w", err)
			}
		}
		return nil
	})
}

// GetSettingValue 读取设置项；不存在返回空串且无错误
func (m *MySQL) GetSettingValue(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := m.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("读取设置项失败: %w", err)
	}
	return setting.SettingValue, nil
}

// UpsertSetting 写入或更新设置项
func (m *MySQL) UpsertSetting(ctx context.Context, key, value string) error {
	var setting models.Setting
	err := m.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m.db.WithContext(ctx).Create(&models.Setting{SettingKey: key, SettingValue: value}).Error
	}
	if err != nil {
		return err
	}
	return m.db.WithContext(ctx).Model(&models.Setting{}).
		Where("setting_key = ?", key).
		Update("setting_value", value).Error
}
