package bot

import (
	"fmt"
	"strings"
	"time"
)

const (
	slashCommandSetDescription  = "Set the FAF username you go by"
	slashCommandSortDescription = "Sort players in your game into team voice channels"
	slashCommandWhoDescription  = "Details about a FAF player"

	optionFAFUsernameDescription = "Your FAF login"
	optionSetMemberDescription   = "Member to set the username for (controllers only)"
	optionSortMemberDescription  = "Member whose game to sort (controllers only)"
	optionPlayerDescription      = "FAF username to look up"

	messageGuildOnly          = "I only work inside a server, my child."
	messageWrongGuild         = "I am not watching over this server, indeed not."
	messageUnknownCommand     = "I do not know that command, oh no."
	messageNotPrivilegedSet   = "No, I don't think I need to take orders from you, indeed!"
	messageNotPrivilegedSort  = "I'm afraid you are not that special, my child!"
	messageSetUsage           = "You need to tell me your FAF username as well, yes! Try `/faf-set faf_username:<name>`."
	messageSetSelf            = "Your FAF login has been set to `%s`."
	messageSetOther           = "I'll remember that %s is %s for you, %s."
	messageSetFailed          = "I could not write that down just now - try again shortly."
	messageFAFUnavailable     = "I had a problem getting data from the FAF API, yes!"
	messageFAFUnknownPlayer   = "You must be mistaken, FAF does not know a player called `%s`."
	messageNotInChannel       = "You must be in a voice channel in order to issue this command."
	messageWrongCategory      = "I only sort games from voice channels in the right category, my child."
	messageUnknownIdentity    = "I couldn't find your FAF username. Please set it, eg `/faf-set faf_username:%s`."
	messageNoMatch            = "I couldn't find you in any games on FAF, indeed!"
	messageMatchEnded         = "I'm afraid your last game is... over!"
	messageAlreadySorting     = "You will have to be patient, %s, %s is already sorting %s - oh yes!"
	messageNoChannels         = "I'm afraid I was unable to create any voice channels."
	messageSortFailed         = "Something went wrong while sorting - this is a temporary inconvenience at best!"
	messageSortDone           = "All sorted for `%s`, %d moved into %d team channels."
	messageCouldNotPlace      = "I could not place %d players."
	messageCouldNotCreate     = "I could not create %d channels."
	messageUnresolvedPlayers  = "I couldn't find Discord usernames for the following FAF players: %s - if you're one of those people, issue `/faf-set` with your FAF username."
	messageWhoSeen            = "I've seen them before, yes!"
	messageWhoUnseen          = "I believe I do not recognise them!"
	messageWhoFormat          = "Player %s joined at %s\nThey last logged in at %s\n%s"
	whoTimeLayout             = "2006-01-02 15:04 MST"
	greetingHostIsPlayer      = "your"
	greetingHostPossessiveFmt = "%s's"
)

var standardGreetings = []string{
	"{player}, my child, I see you're in game `{name}` hosted by {host}!",
	"It is as I predicted, {player} - {host} would start game `{name}` - oh yes!",
	"I see {host} started game `{name}`, {player} - very well, you should talk privately.",
	"Oh ho, {player} - you want somewhere to discuss {host_s} game `{name}`. Indeed, indeed!",
	"Well well - {host_s} battle has come to `{name}`, {player}. I see it.",
}

// Extra greetings for controllers.
var privilegedGreetings = []string{
	"Well, {player} old friend - you need somewhere to converse on {host_s} game `{name}`, and you shall have it!",
	"Good old {player} has asked for somewhere to discuss game `{name}` of {host} - oh yes!",
}

func greeting(template, player, host, matchName string) string {
	hostPossessive := fmt.Sprintf(greetingHostPossessiveFmt, host)
	if host == player {
		host = greetingHostIsPlayer
		hostPossessive = greetingHostIsPlayer
	}
	return strings.NewReplacer(
		"{player}", player,
		"{host_s}", hostPossessive,
		"{host}", host,
		"{name}", matchName,
	).Replace(template)
}

func whoMessage(login string, createdAt, updatedAt time.Time, loc *time.Location, seen bool) string {
	seenLine := messageWhoUnseen
	if seen {
		seenLine = messageWhoSeen
	}
	return fmt.Sprintf(messageWhoFormat,
		login,
		createdAt.In(loc).Format(whoTimeLayout),
		updatedAt.In(loc).Format(whoTimeLayout),
		seenLine,
	)
}
