package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"lessonplanner/internal/config"
	"lessonplanner/internal/drag"
	"lessonplanner/internal/editor"
	"lessonplanner/internal/model"
	"lessonplanner/internal/placement"
	"lessonplanner/internal/plannerapi"
	"lessonplanner/internal/schedule"
	"lessonplanner/internal/slots"
)

var errHelp = errors.New("help provided")

// commandLine runs planner operations against a remote planner API.
type commandLine struct {
	cfg    *config.Config
	client *plannerapi.Client
	logger *zerolog.Logger
}

func newCommandLine(cfg *config.Config, logger *zerolog.Logger) *commandLine {
	client := plannerapi.NewClient(cfg.Client.BaseURL, cfg.Client.APIKey)
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}
	return &commandLine{cfg: cfg, client: client, logger: logger}
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  serve                                                    - run the planner API (default)")
	fmt.Println("  place -class ID -title TITLE -start YYYY-MM-DD -items FILE - place curriculum items onto the schedule")
	fmt.Println("  move -class ID -lesson ID -from YYYY-MM-DD -to YYYY-MM-DD [-user ID] [-policy P] - move a lesson to another day")
	fmt.Println("  lesson -class ID -date YYYY-MM-DD [-period N] -topic TOPIC - create a lesson")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	if cli.cfg.Client.BaseURL == "" {
		return fmt.Errorf("client.base_url is not configured")
	}
	if err := cli.client.HealthCheck(ctx); err != nil {
		return err
	}

	switch args[1] {
	case "place":
		fs := flag.NewFlagSet("place", flag.ExitOnError)
		classID := fs.String("class", "", "class id")
		title := fs.String("title", "", "curriculum title")
		start := fs.String("start", "", "first day to place on (YYYY-MM-DD)")
		items := fs.String("items", "", "YAML file with a list of {title, content}")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *classID == "" || *start == "" || *items == "" {
			fs.Usage()
			return errHelp
		}
		return cli.place(ctx, *classID, *title, *start, *items)

	case "move":
		fs := flag.NewFlagSet("move", flag.ExitOnError)
		classID := fs.String("class", "", "class id")
		lessonID := fs.String("lesson", "", "lesson id")
		from := fs.String("from", "", "current day of the lesson (YYYY-MM-DD)")
		to := fs.String("to", "", "target day (YYYY-MM-DD)")
		policy := fs.String("policy", "", "period policy: keep, clear or nearest (default: the user's preference, then scheduler.period_policy)")
		userID := fs.String("user", "", "user whose stored preferences supply the period policy")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *classID == "" || *lessonID == "" || *from == "" || *to == "" {
			fs.Usage()
			return errHelp
		}
		p, err := cli.resolvePolicy(ctx, *policy, *userID)
		if err != nil {
			return err
		}
		return cli.move(ctx, *classID, *lessonID, *from, *to, p)

	case "lesson":
		fs := flag.NewFlagSet("lesson", flag.ExitOnError)
		classID := fs.String("class", "", "class id")
		date := fs.String("date", "", "day of the lesson (YYYY-MM-DD)")
		period := fs.Int("period", 0, "period, 0 for none")
		topic := fs.String("topic", "", "lesson topic")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *classID == "" || *date == "" {
			fs.Usage()
			return errHelp
		}
		return cli.createLesson(ctx, *classID, *date, *period, *topic)

	default:
		cli.printUsage()
		return errHelp
	}
}

// resolvePolicy picks the drag period policy: an explicit flag, then the
// user's stored preference, then the configured default.
func (cli *commandLine) resolvePolicy(ctx context.Context, flagValue, userID string) (drag.PeriodPolicy, error) {
	if flagValue != "" {
		return drag.ParsePeriodPolicy(flagValue)
	}
	if userID != "" {
		p, err := cli.client.GetPreferences(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("load preferences: %w", err)
		}
		return drag.ParsePeriodPolicy(string(p.PeriodPolicy))
	}
	return cli.cfg.PeriodPolicy(), nil
}

type itemFile struct {
	Items []struct {
		Title   string `yaml:"title"`
		Content string `yaml:"content"`
	} `yaml:"items"`
}

func (cli *commandLine) place(ctx context.Context, classID, title, start, path string) error {
	startDate, err := schedule.ParseDate(start)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read items: %w", err)
	}
	var f itemFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse items: %w", err)
	}

	class, err := cli.client.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	items := make([]placement.Item, len(f.Items))
	for i, it := range f.Items {
		items[i] = placement.Item{Title: it.Title, Content: it.Content}
	}

	wf := placement.NewWorkflow(slots.NewProjector(cli.cfg.Scheduler.HorizonDays), cli.client, placement.Options{
		PreviewLength: cli.cfg.Scheduler.PreviewLength,
		Logger:        cli.logger,
	})
	res, err := wf.Place(ctx, placement.Request{Class: *class, Title: title, StartDate: startDate, Items: items})
	if err != nil {
		return err
	}
	placed := make([]slots.Slot, len(res.Entries))
	topics := make(map[string]string, len(res.Entries))
	for i, e := range res.Entries {
		placed[i] = slots.Slot{Date: e.Date, Period: e.Period}
		topics[placed[i].String()] = e.Topic
	}
	for _, day := range slots.GroupByDay(placed) {
		fmt.Println(schedule.FormatDate(day[0].Date))
		for _, s := range day {
			fmt.Printf("  %d. Stunde  %s\n", s.Period, topics[s.String()])
		}
	}
	fmt.Printf("%d entries created\n", res.Created)
	return nil
}

func (cli *commandLine) move(ctx context.Context, classID, lessonID, from, to string, policy drag.PeriodPolicy) error {
	day, err := schedule.ParseDate(from)
	if err != nil {
		return err
	}
	class, err := cli.client.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	lessons, err := cli.client.ListLessons(ctx, classID, day, day)
	if err != nil {
		return err
	}

	var settled drag.Settlement
	r := drag.NewRescheduler(*class, lessons, cli.client, drag.Options{
		Policy:    policy,
		Logger:    cli.logger,
		OnSettled: func(s drag.Settlement) { settled = s },
	})

	if _, ok := r.Lesson(lessonID); !ok {
		return fmt.Errorf("lesson %s not found on %s", lessonID, from)
	}
	slotID := drag.LessonSlotID(lessonID)

	if err := r.OnDragStart(slotID); err != nil {
		return err
	}
	res, err := r.OnDrop(slotID, to)
	if err != nil {
		return err
	}
	if res.State == drag.StateDroppedSame {
		fmt.Println("lesson already on that day")
		return nil
	}
	r.Wait()
	if settled.Err != nil {
		cli.refresh(ctx, r, classID, lessonID, day, res.Lesson.Date)
		return settled.Err
	}
	fmt.Printf("moved to %s, period %s\n", schedule.FormatDate(settled.Lesson.Date), settled.Lesson.Period)
	return nil
}

// refresh reloads the lessons between two days after a failed update and
// reports where the server keeps the lesson.
func (cli *commandLine) refresh(ctx context.Context, r *drag.Rescheduler, classID, lessonID string, a, b time.Time) {
	if b.Before(a) {
		a, b = b, a
	}
	lessons, err := cli.client.ListLessons(ctx, classID, a, b)
	if err != nil {
		cli.logger.Warn().Err(err).Msg("failed to refresh lessons")
		return
	}
	r.Replace(lessons)
	if l, ok := r.Lesson(lessonID); ok {
		fmt.Printf("lesson stays on %s, period %s\n", schedule.FormatDate(l.Date), l.Period)
	}
}

func (cli *commandLine) createLesson(ctx context.Context, classID, date string, period int, topic string) error {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return err
	}
	m := editor.NewModal(classID, cli.client)
	m.ClickDay(day)
	in, err := m.Initial()
	if err != nil {
		return err
	}
	if period > 0 {
		in.Period = model.PeriodOf(period)
	}
	in.Topic = topic
	saved, err := m.Save(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("created lesson %s\n", saved.ID)
	return nil
}
