package stats

import (
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/chart"
	"github.com/blockedby/tgstats/internal/models"
)

const monthSeconds = 30 * 86400

func graphFromTL(g tg.StatsGraphClass) models.StatisticalGraph {
	switch g := g.(type) {
	case *tg.StatsGraph:
		c, err := chart.Decode([]byte(g.JSON.Data))
		if err != nil {
			return models.ErrorGraph(err.Error())
		}
		token, _ := g.GetZoomToken()
		return models.StatisticalGraph{Chart: &c, ZoomToken: token}
	case *tg.StatsGraphAsync:
		return models.StatisticalGraph{ZoomToken: g.Token}
	case *tg.StatsGraphError:
		return models.ErrorGraph(g.Error)
	default:
		return models.StatisticalGraph{}
	}
}

func valueFromTL(v tg.StatsAbsValueAndPrev) models.StatisticalValue {
	return models.NewStatisticalValue(v.Current, v.Previous)
}

// percentFromTL returns part/total as a percentage clamped to [0, 100].
func percentFromTL(v tg.StatsPercentValue) float64 {
	if v.Total == 0 {
		return 0
	}
	return min(max(v.Part/v.Total*100, 0), 100)
}

func channelStatsFromTL(s *tg.StatsBroadcastStats) models.ChannelStatistics {
	recent := make([]models.MessageInteractionInfo, 0, len(s.RecentPostsInteractions))
	for _, counters := range s.RecentPostsInteractions {
		switch c := counters.(type) {
		case *tg.PostInteractionCountersMessage:
			recent = append(recent, models.MessageInteractionInfo{
				MessageID:      c.MsgID,
				ViewsCount:     c.Views,
				ForwardsCount:  c.Forwards,
				ReactionsCount: c.Reactions,
			})
		case *tg.PostInteractionCountersStory:
			recent = append(recent, models.MessageInteractionInfo{
				StoryID:        c.StoryID,
				ViewsCount:     c.Views,
				ForwardsCount:  c.Forwards,
				ReactionsCount: c.Reactions,
			})
		}
	}

	return models.ChannelStatistics{
		StartDate: s.Period.MinDate,
		EndDate:   s.Period.MaxDate,

		MemberCount:       valueFromTL(s.Followers),
		MeanViewCount:     valueFromTL(s.ViewsPerPost),
		MeanShareCount:    valueFromTL(s.SharesPerPost),
		MeanReactionCount: valueFromTL(s.ReactionsPerPost),

		MeanStoryViewCount:     valueFromTL(s.ViewsPerStory),
		MeanStoryShareCount:    valueFromTL(s.SharesPerStory),
		MeanStoryReactionCount: valueFromTL(s.ReactionsPerStory),

		EnabledNotificationsPercentage: percentFromTL(s.EnabledNotifications),

		MemberCountGraph:             graphFromTL(s.GrowthGraph),
		JoinGraph:                    graphFromTL(s.FollowersGraph),
		MuteGraph:                    graphFromTL(s.MuteGraph),
		ViewCountByHourGraph:         graphFromTL(s.TopHoursGraph),
		ViewCountBySourceGraph:       graphFromTL(s.ViewsBySourceGraph),
		JoinBySourceGraph:            graphFromTL(s.NewFollowersBySourceGraph),
		LanguageGraph:                graphFromTL(s.LanguagesGraph),
		MessageInteractionGraph:      graphFromTL(s.InteractionsGraph),
		InstantViewInteractionGraph:  graphFromTL(s.IvInteractionsGraph),
		ReactionsByEmotionGraph:      graphFromTL(s.ReactionsByEmotionGraph),
		StoryInteractionsGraph:       graphFromTL(s.StoryInteractionsGraph),
		StoryReactionsByEmotionGraph: graphFromTL(s.StoryReactionsByEmotionGraph),

		RecentMessageInteractions: recent,
	}
}

func supergroupStatsFromTL(s *tg.StatsMegagroupStats) models.SupergroupStatistics {
	senders := make([]models.MessageSenderInfo, 0, len(s.TopPosters))
	for _, p := range s.TopPosters {
		senders = append(senders, models.MessageSenderInfo{
			UserID:                p.UserID,
			SentMessageCount:      p.Messages,
			AverageCharacterCount: p.AvgChars,
		})
	}
	admins := make([]models.AdministratorActionsInfo, 0, len(s.TopAdmins))
	for _, a := range s.TopAdmins {
		admins = append(admins, models.AdministratorActionsInfo{
			UserID:              a.UserID,
			DeletedMessageCount: a.Deleted,
			BannedUserCount:     a.Kicked,
			RestrictedUserCount: a.Banned,
		})
	}
	inviters := make([]models.InviterInfo, 0, len(s.TopInviters))
	for _, i := range s.TopInviters {
		inviters = append(inviters, models.InviterInfo{
			UserID:           i.UserID,
			AddedMemberCount: i.Invitations,
		})
	}

	return models.SupergroupStatistics{
		StartDate: s.Period.MinDate,
		EndDate:   s.Period.MaxDate,

		MemberCount:  valueFromTL(s.Members),
		MessageCount: valueFromTL(s.Messages),
		ViewerCount:  valueFromTL(s.Viewers),
		SenderCount:  valueFromTL(s.Posters),

		MemberCountGraph:    graphFromTL(s.GrowthGraph),
		JoinGraph:           graphFromTL(s.MembersGraph),
		JoinBySourceGraph:   graphFromTL(s.NewMembersBySourceGraph),
		LanguageGraph:       graphFromTL(s.LanguagesGraph),
		MessageContentGraph: graphFromTL(s.MessagesGraph),
		ActionGraph:         graphFromTL(s.ActionsGraph),
		DayGraph:            graphFromTL(s.TopHoursGraph),
		WeekGraph:           graphFromTL(s.WeekdaysGraph),

		TopSenders:        senders,
		TopAdministrators: admins,
		TopInviters:       inviters,
	}
}

func peerFromTL(p tg.PeerClass) models.PeerID {
	switch p := p.(type) {
	case *tg.PeerUser:
		return models.UserPeer(p.UserID)
	case *tg.PeerChat:
		return models.ChatPeer(p.ChatID)
	case *tg.PeerChannel:
		return models.ChannelPeer(p.ChannelID)
	default:
		return models.PeerID{}
	}
}

// messageHeader returns the id, owning peer and date of a message.
// Empty messages have no date.
func messageHeader(m tg.MessageClass) (id int, peer models.PeerID, date int) {
	switch m := m.(type) {
	case *tg.Message:
		return m.ID, peerFromTL(m.PeerID), m.Date
	case *tg.MessageService:
		return m.ID, peerFromTL(m.PeerID), m.Date
	case *tg.MessageEmpty:
		if p, ok := m.GetPeerID(); ok {
			return m.ID, peerFromTL(p), 0
		}
		return m.ID, models.PeerID{}, 0
	default:
		return 0, models.PeerID{}, 0
	}
}

func interactionFromMessage(m tg.MessageClass) models.MessageInteractionInfo {
	msg, ok := m.(*tg.Message)
	if !ok {
		return models.MessageInteractionInfo{}
	}
	info := models.MessageInteractionInfo{MessageID: msg.ID}
	info.ViewsCount, _ = msg.GetViews()
	info.ForwardsCount, _ = msg.GetForwards()
	if reactions, ok := msg.GetReactions(); ok {
		for _, r := range reactions.Results {
			info.ReactionsCount += r.Count
		}
	}
	return info
}

func interactionFromStory(s tg.StoryItemClass) models.MessageInteractionInfo {
	item, ok := s.(*tg.StoryItem)
	if !ok {
		return models.MessageInteractionInfo{}
	}
	views, ok := item.GetViews()
	if !ok {
		return models.MessageInteractionInfo{}
	}
	info := models.MessageInteractionInfo{
		StoryID:    item.ID,
		ViewsCount: views.ViewsCount,
	}
	info.ForwardsCount, _ = views.GetForwardsCount()
	info.ReactionsCount, _ = views.GetReactionsCount()
	return info
}

// messagesList returns the messages carried by any messages.Messages shape.
func messagesList(result tg.MessagesMessagesClass) []tg.MessageClass {
	switch r := result.(type) {
	case *tg.MessagesMessages:
		return r.Messages
	case *tg.MessagesMessagesSlice:
		return r.Messages
	case *tg.MessagesChannelMessages:
		return r.Messages
	default:
		return nil
	}
}

func boostsOverviewFromTL(s *tg.PremiumBoostsStatus) models.BoostsOverview {
	premiumMemberCount := 0
	participantCount := 0
	if audience, ok := s.GetPremiumAudience(); ok {
		premiumMemberCount = max(0, int(audience.Part))
		participantCount = max(int(audience.Total), premiumMemberCount)
	}
	premiumMemberPercentage := 0.0
	if participantCount > 0 {
		premiumMemberPercentage = 100 * float64(premiumMemberCount) / float64(participantCount)
	}

	slots, _ := s.GetMyBoostSlots()
	nextLevel, _ := s.GetNextLevelBoosts()
	gifts, _ := s.GetGiftBoosts()

	return models.BoostsOverview{
		Mine:                    len(slots),
		Level:                   max(s.Level, 0),
		BoostCount:              max(s.Boosts, s.CurrentLevelBoosts),
		GiftBoostCount:          gifts,
		CurrentLevelBoostCount:  s.CurrentLevelBoosts,
		NextLevelBoostCount:     nextLevel,
		PremiumMemberCount:      premiumMemberCount,
		PremiumMemberPercentage: premiumMemberPercentage,
	}
}

func prepaidGiveawaysFromTL(list []tg.PrepaidGiveawayClass) []models.BoostPrepaidGiveaway {
	out := make([]models.BoostPrepaidGiveaway, 0, len(list))
	for _, g := range list {
		switch g := g.(type) {
		case *tg.PrepaidGiveaway:
			out = append(out, models.BoostPrepaidGiveaway{
				ID:       g.ID,
				Months:   g.Months,
				Quantity: g.Quantity,
				Date:     time.Unix(int64(g.Date), 0),
			})
		case *tg.PrepaidStarsGiveaway:
			out = append(out, models.BoostPrepaidGiveaway{
				ID:       g.ID,
				Stars:    g.Stars,
				Boosts:   g.Boosts,
				Quantity: g.Quantity,
				Date:     time.Unix(int64(g.Date), 0),
			})
		}
	}
	return out
}

func boostFromTL(b tg.Boost, channel models.PeerID, linkDomain string) models.Boost {
	out := models.Boost{
		IsGift:             b.Gift,
		IsGiveaway:         b.Giveaway,
		IsUnclaimed:        b.Unclaimed,
		ID:                 b.ID,
		Date:               time.Unix(int64(b.Date), 0),
		Expiration:         time.Unix(int64(b.Expires), 0),
		ExpiresAfterMonths: (b.Expires - b.Date) / monthSeconds,
	}
	out.UserID, _ = b.GetUserID()
	out.Multiplier, _ = b.GetMultiplier()
	out.Stars, _ = b.GetStars()
	if msgID, ok := b.GetGiveawayMsgID(); ok {
		out.GiveawayMessage = models.FullMsgID{Peer: channel, Msg: msgID}
	}
	if slug, ok := b.GetUsedGiftSlug(); ok && slug != "" {
		path := "giftcode/" + slug
		out.GiftCodeLink = models.GiftCodeLink{
			Text: linkDomain + "/" + path,
			Link: "https://" + linkDomain + "/" + path,
			Slug: slug,
		}
	}
	return out
}
