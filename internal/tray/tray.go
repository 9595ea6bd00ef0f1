// Package tray provides a system tray menu for the datilo recognition service.
package tray

import (
	"sync"
	"unicode/utf8"

	"github.com/getlantern/systray"

	"github.com/ayusman/datilo/internal/session"
)

// maxTextRunes is how much of the formed text fits in a menu title.
const maxTextRunes = 32

// Tray shows the current letter and text and offers the session commands.
type Tray struct {
	session *session.Controller

	onToggle    func(enabled bool)
	onAutoSpeak func(enabled bool)
	onOpen      func()
	onQuit      func()
	enabled     bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuLetter    *systray.MenuItem
	menuText      *systray.MenuItem
	menuToggle    *systray.MenuItem
	menuAutoSpeak *systray.MenuItem

	stop chan struct{}
}

// New creates a new Tray for c with recognition enabled.
func New(c *session.Controller) *Tray {
	return &Tray{
		session: c,
		enabled: true,
		stop:    make(chan struct{}),
	}
}

// OnToggle sets the callback for pausing and resuming recognition.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnAutoSpeak sets the callback run after auto-speak was switched from the menu.
func (t *Tray) OnAutoSpeak(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAutoSpeak = fn
}

// OnOpen sets the callback for the "open in browser" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called or the quit item is clicked, and
// must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Datilo")
	systray.SetTooltip("Datilo - datilologia em texto")

	t.menuLetter = systray.AddMenuItem(letterTitle(""), "Letra atual")
	t.menuLetter.Disable()
	t.menuText = systray.AddMenuItem(textTitle(""), "Texto formado")
	t.menuText.Disable()
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem(toggleTitle(true), "Pausar ou retomar o reconhecimento")
	t.menuAutoSpeak = systray.AddMenuItem(autoSpeakTitle(t.session.AutoSpeak()), "Falar frases ao terminar")
	menuSpeak := systray.AddMenuItem("Falar texto", "Falar o texto atual")
	menuBackspace := systray.AddMenuItem("Apagar letra", "Apagar o último caractere")
	menuClear := systray.AddMenuItem("Limpar texto", "Apagar todo o texto")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Abrir no navegador...", "Abrir a interface web")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Sair", "Encerrar o Datilo")

	go t.watch()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuAutoSpeak.ClickedCh:
				t.handleAutoSpeak()
			case <-menuSpeak.ClickedCh:
				t.session.Speak()
			case <-menuBackspace.ClickedCh:
				t.session.ClearLast()
			case <-menuClear.ClickedCh:
				t.session.ClearAll()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			case <-t.stop:
				return
			}
		}
	}()
}

// watch mirrors session snapshots into the menu titles.
func (t *Tray) watch() {
	snapshots, unsubscribe := t.session.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-t.stop:
			return
		case snap := <-snapshots:
			t.menuLetter.SetTitle(letterTitle(snap.CurrentLetter))
			t.menuText.SetTitle(textTitle(snap.FormedText))
			t.menuAutoSpeak.SetTitle(autoSpeakTitle(snap.AutoSpeak))
		}
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	close(t.stop)
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleAutoSpeak() {
	enabled, err := t.session.ToggleAutoSpeak()
	if err != nil {
		return
	}

	t.mu.RLock()
	callback := t.onAutoSpeak
	t.mu.RUnlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func letterTitle(letter string) string {
	if letter == "" {
		letter = session.NoLetter
	}
	return "Letra: " + letter
}

// textTitle keeps the tail of long text, which is where the signer is.
func textTitle(text string) string {
	if text == "" {
		return "Texto: (vazio)"
	}
	if n := utf8.RuneCountInString(text); n > maxTextRunes {
		runes := []rune(text)
		text = "..." + string(runes[n-maxTextRunes:])
	}
	return "Texto: " + text
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Reconhecimento ativo"
	}
	return "○ Reconhecimento pausado"
}

func autoSpeakTitle(enabled bool) string {
	if enabled {
		return "☑ Falar automaticamente"
	}
	return "☐ Falar automaticamente"
}
