package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/volume-tray/internal/app"
	"github.com/petems/volume-tray/internal/logging"
)

type UI struct {
	app     *app.App
	version string
	commit  string
	log     zerolog.Logger

	// Menu items
	mVolUp     *systray.MenuItem
	mVolDown   *systray.MenuItem
	mMute      *systray.MenuItem
	mNormalize *systray.MenuItem
	mDevices   *systray.MenuItem

	// OnReady runs on the systray thread once the tray exists, before
	// the menu is built. Main uses it to open the mixer so the first
	// status update lands on a live tray.
	OnReady func()
}

func New(application *app.App, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		app:     application,
		version: version,
		commit:  commit,
		log:     log,
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

func (u *UI) Run(ctx context.Context) error {
	systray.Run(u.onReady, u.onExit)
	return nil
}

// Status update methods for the app to call

func (u *UI) SetVolume(percent int, muted bool) {
	systray.SetTitle(titleFor(percent, muted))
	systray.SetTooltip(fmt.Sprintf("Volume: %d%%", percent))
	if u.mMute == nil {
		return
	}
	if muted {
		u.mMute.Check()
	} else {
		u.mMute.Uncheck()
	}
}

func (u *UI) SetNoDevice(reason string) {
	systray.SetTitle("🔇 ❌")
	systray.SetTooltip(fmt.Sprintf("No audio device (%s)", reason))
}

func (u *UI) onReady() {
	systray.SetTitle("🔊")
	systray.SetTooltip("Volume control")

	if u.OnReady != nil {
		u.OnReady()
	}

	u.mVolUp = systray.AddMenuItem("Volume Up", "Raise volume by one step")
	u.mVolDown = systray.AddMenuItem("Volume Down", "Lower volume by one step")
	u.mMute = systray.AddMenuItemCheckbox("Mute", "Toggle mute", false)
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Output Device", "Select card and channel")
	u.buildDeviceMenu()

	u.mNormalize = systray.AddMenuItemCheckbox("Normalize Volume", "Use perceptual volume curve", u.app.Normalize())
	systray.AddSeparator()

	mTest := systray.AddMenuItem("Play Test Sound", "Play a short tone")
	mCopy := systray.AddMenuItem("Copy Debug Info", "Copy device state to clipboard")
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About volume-tray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mTest, mCopy, mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mTest, mCopy, mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mVolUp.ClickedCh:
			u.app.VolumeUp(false)
		case <-u.mVolDown.ClickedCh:
			u.app.VolumeDown(false)
		case <-u.mMute.ClickedCh:
			u.app.ToggleMute()
		case <-u.mNormalize.ClickedCh:
			u.toggleNormalize()
		case <-mTest.ClickedCh:
			u.app.PlayTestSound()
		case <-mCopy.ClickedCh:
			u.copyDebugInfo()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildDeviceMenu() {
	cards, err := u.app.Cards()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		u.mDevices.AddSubMenuItem("No devices found", "").Disable()
		return
	}

	currentCard := u.app.CurrentCard()
	currentChannel := u.app.CurrentChannel()

	channelItems := make(map[string]*systray.MenuItem)

	for _, card := range cards {
		cardItem := u.mDevices.AddSubMenuItem(card.DisplayName, card.Name)

		usable := 0
		for _, ch := range card.Channels {
			// Channels with nothing to control stay out of the menu;
			// the registry still reports them for diagnostics.
			if !ch.HasVolume && !ch.HasMute {
				continue
			}
			usable++
			key := card.Name + "/" + ch.Name
			item := cardItem.AddSubMenuItemCheckbox(ch.Name, "",
				card.Name == currentCard && ch.Name == currentChannel)
			channelItems[key] = item

			go func(cardName, chName, key string, menuItem *systray.MenuItem) {
				for {
					<-menuItem.ClickedCh
					if err := u.app.SelectChannel(cardName, chName); err != nil {
						continue
					}
					// Uncheck all other items
					for k, itm := range channelItems {
						if k != key {
							itm.Uncheck()
						}
					}
					menuItem.Check()
					u.log.Info().Str("card", cardName).Str("channel", chName).Msg("Changed output device")
				}
			}(card.Name, ch.Name, key, item)
		}
		if usable == 0 {
			cardItem.AddSubMenuItem("No controls", "").Disable()
		}
	}
}

func (u *UI) toggleNormalize() {
	on := !u.app.Normalize()
	u.app.SetNormalize(on)
	if on {
		u.mNormalize.Check()
	} else {
		u.mNormalize.Uncheck()
	}
	u.log.Info().Bool("normalize", on).Msg("Changed volume curve")
}

func (u *UI) copyDebugInfo() {
	info := fmt.Sprintf("volume-tray %s (%s)\n%s", u.version, u.commit, u.app.DebugInfo())
	if err := clipboard.WriteAll(info); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy debug info")
		return
	}
	u.log.Info().Msg("Copied debug info to clipboard")
}

func (u *UI) openLogs() {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}
	if err := exec.Command(opener, logging.Path()).Start(); err != nil {
		u.log.Error().Err(err).Msg("Failed to open log file")
	}
}

func (u *UI) showAbout() {
	fmt.Printf("volume-tray %s (%s)\nTray volume control for ALSA\n", u.version, u.commit)
}

func (u *UI) onExit() {
	// Cleanup
}

// titleFor renders the tray title for a volume level
func titleFor(percent int, muted bool) string {
	if muted {
		return "🔇"
	}
	switch {
	case percent == 0:
		return "🔈"
	case percent < 50:
		return "🔉"
	default:
		return "🔊"
	}
}
