package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blockedby/tgstats/internal/config"
	"github.com/blockedby/tgstats/internal/database"
	"github.com/blockedby/tgstats/internal/directory"
	"github.com/blockedby/tgstats/internal/models"
	"github.com/blockedby/tgstats/internal/stats"
	"github.com/blockedby/tgstats/internal/telegram"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: tg-stats @channel_username [post_id]")
		fmt.Println("example: tg-stats @durov")
		fmt.Println("         tg-stats @durov 312")
		os.Exit(1)
	}

	username := strings.TrimPrefix(os.Args[1], "@")
	postID := 0
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			fmt.Printf("error: invalid post id %q\n", os.Args[2])
			os.Exit(1)
		}
		postID = n
	}

	cfg, err := config.Load()
	if err != nil {
		fail("load config", err)
	}
	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		fmt.Println("error: missing required environment variables")
		fmt.Println("please set: TG_API_ID, TG_API_HASH")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StatsRequestTimeout)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fail("connect to database", err)
	}
	defer db.Close()

	manager, err := telegram.NewManager(cfg, db.GORM)
	if err != nil {
		fail("create telegram manager", err)
	}
	if err := manager.Init(ctx); err != nil {
		fail("start telegram client", err)
	}
	defer manager.Stop()
	if manager.GetStatus() != telegram.StatusReady {
		fmt.Println("error: no telegram session stored in the database")
		os.Exit(1)
	}

	// memory-only directory, nothing is written back
	dir, err := directory.New(nil)
	if err != nil {
		fail("open directory", err)
	}
	defer dir.Close()

	limiter := telegram.NewRateLimiter(cfg.TGRateLimitRPS, 1)
	transport := telegram.NewTransport(manager, limiter)

	loop := stats.NewLoop()
	go func() { _ = loop.Run(ctx) }()

	svc := stats.NewService(loop, transport, dir, nil, stats.Options{
		ForwardsLimit: cfg.StatsForwardsLimit,
		LinkDomain:    cfg.TGLinkDomain,
	})
	defer transport.Wait()
	defer func() { _ = svc.Close(context.Background()) }()

	channel, err := telegram.NewClient(manager, limiter, dir).ResolveChannel(ctx, username)
	if err != nil {
		fail("resolve channel", err)
	}

	fmt.Printf("%s (@%s), stats dc %d\n\n", channel.Title, username, channel.StatsDC)

	switch {
	case postID > 0:
		st, err := svc.MessageStatistics(ctx, channel, postID)
		if err != nil {
			fail("message statistics", err)
		}
		printMessage(postID, st)
	case channel.Megagroup:
		st, err := svc.SupergroupStatistics(ctx, channel)
		if err != nil {
			fail("supergroup statistics", err)
		}
		printSupergroup(st)
	default:
		st, err := svc.ChannelStatistics(ctx, channel)
		if err != nil {
			fail("channel statistics", err)
		}
		printChannel(st)
		if boosts, err := svc.BoostStatus(ctx, channel); err == nil {
			o := boosts.Overview
			fmt.Printf("\nboosts: level %d, %d/%d to next level, %d premium members\n",
				o.Level, o.BoostCount, o.NextLevelBoostCount, o.PremiumMemberCount)
		}
	}
}

func fail(step string, err error) {
	fmt.Printf("error: %s: %v\n", step, err)
	os.Exit(1)
}

func printPeriod(start, end int) {
	fmt.Printf("period: %s .. %s\n\n",
		time.Unix(int64(start), 0).Format(time.DateOnly),
		time.Unix(int64(end), 0).Format(time.DateOnly))
}

func printValue(name string, v models.StatisticalValue) {
	fmt.Printf("%-24s | %12.0f | %12.0f | %+8.2f%%\n", name, v.Value, v.PreviousValue, v.GrowthRatePercentage)
}

func printGraphs(graphs map[string]models.StatisticalGraph, order []string) {
	fmt.Printf("\n%-32s | %-8s\n", "graph", "kind")
	fmt.Println(strings.Repeat("-", 44))
	for _, name := range order {
		g := graphs[name]
		kind := string(g.Kind())
		if g.Error != "" {
			kind += ": " + g.Error
		}
		fmt.Printf("%-32s | %s\n", name, kind)
	}
}

func printChannel(st models.ChannelStatistics) {
	printPeriod(st.StartDate, st.EndDate)
	fmt.Printf("%-24s | %12s | %12s | %9s\n", "counter", "value", "previous", "growth")
	fmt.Println(strings.Repeat("-", 66))
	printValue("members", st.MemberCount)
	printValue("mean views", st.MeanViewCount)
	printValue("mean shares", st.MeanShareCount)
	printValue("mean reactions", st.MeanReactionCount)
	printValue("mean story views", st.MeanStoryViewCount)
	fmt.Printf("notifications enabled: %.1f%%\n", st.EnabledNotificationsPercentage)

	printGraphs(map[string]models.StatisticalGraph{
		"member_count":         st.MemberCountGraph,
		"join":                 st.JoinGraph,
		"mute":                 st.MuteGraph,
		"view_count_by_hour":   st.ViewCountByHourGraph,
		"language":             st.LanguageGraph,
		"message_interaction":  st.MessageInteractionGraph,
		"reactions_by_emotion": st.ReactionsByEmotionGraph,
	}, []string{"member_count", "join", "mute", "view_count_by_hour", "language", "message_interaction", "reactions_by_emotion"})

	if len(st.RecentMessageInteractions) > 0 {
		fmt.Printf("\n%-10s | %-8s | %-8s | %-9s\n", "post", "views", "forwards", "reactions")
		fmt.Println(strings.Repeat("-", 44))
		for _, m := range st.RecentMessageInteractions {
			id := fmt.Sprintf("msg %d", m.MessageID)
			if m.StoryID != 0 {
				id = fmt.Sprintf("story %d", m.StoryID)
			}
			fmt.Printf("%-10s | %-8d | %-8d | %-9d\n", id, m.ViewsCount, m.ForwardsCount, m.ReactionsCount)
		}
	}
}

func printSupergroup(st models.SupergroupStatistics) {
	printPeriod(st.StartDate, st.EndDate)
	fmt.Printf("%-24s | %12s | %12s | %9s\n", "counter", "value", "previous", "growth")
	fmt.Println(strings.Repeat("-", 66))
	printValue("members", st.MemberCount)
	printValue("messages", st.MessageCount)
	printValue("viewers", st.ViewerCount)
	printValue("senders", st.SenderCount)

	printGraphs(map[string]models.StatisticalGraph{
		"member_count":    st.MemberCountGraph,
		"join":            st.JoinGraph,
		"language":        st.LanguageGraph,
		"message_content": st.MessageContentGraph,
		"action":          st.ActionGraph,
		"day":             st.DayGraph,
		"week":            st.WeekGraph,
	}, []string{"member_count", "join", "language", "message_content", "action", "day", "week"})

	fmt.Printf("\ntop senders: %d, top administrators: %d, top inviters: %d\n",
		len(st.TopSenders), len(st.TopAdministrators), len(st.TopInviters))
}

func printMessage(id int, st models.MessageStatistics) {
	fmt.Printf("post %d: %d views, %d reactions, %d public / %d private forwards\n",
		id, st.Views, st.Reactions, st.PublicForwards, st.PrivateForwards)
	printGraphs(map[string]models.StatisticalGraph{
		"message_interaction":  st.MessageInteractionGraph,
		"reactions_by_emotion": st.ReactionsByEmotionGraph,
	}, []string{"message_interaction", "reactions_by_emotion"})
}
