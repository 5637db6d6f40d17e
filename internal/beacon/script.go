package beacon

import (
	"fmt"
	"net/http"
	"text/template"
)

// trackerScriptTemplate renders the JS tracker snippet served at
// GET /trace/app_<trackingID>.js. It is a text/template (not html/template)
// deliberately: the payload is JavaScript, not HTML, and html/template would
// incorrectly escape the embedded string literals.
var trackerScriptTemplate = template.Must(template.New("tracker").Parse(`
(function() {
  var endpoint = {{printf "%q" .Protocol}} + "://" + {{printf "%q" .Endpoint}};
  var heartbeatMs = {{.HeartbeatFrequencyMs}};
  function send(body) {
    if (navigator.sendBeacon) {
      navigator.sendBeacon(endpoint, new Blob([body], {type: "application/json"}));
      return;
    }
    var xhr = new XMLHttpRequest();
    xhr.open("POST", endpoint, true);
    xhr.setRequestHeader("Content-Type", "application/json");
    xhr.send(body);
  }
  var idempotency = Math.random().toString(36).slice(2);
  var first = true;
  function beacon() {
    var body = {
      idempotency: idempotency,
      location: window.location.href,
      referrer: document.referrer
    };
    if (first && window.performance && performance.timing) {
      body.loadTime = performance.timing.loadEventEnd - performance.timing.navigationStart;
    }
    first = false;
    send(JSON.stringify(body));
  }
  beacon();
  setInterval(function() {
    if (document.visibilityState !== "hidden") {
      beacon();
    }
  }, heartbeatMs);
  {{.ScriptInject}}
})();
`))

// dntScriptTemplate is served in place of trackerScriptTemplate when the
// request carries DNT/GPC: it performs no tracking at all.
var dntScriptTemplate = template.Must(template.New("tracker-dnt").Parse(
	`var shymini = { dnt: true };` + "\n",
))

type scriptVars struct {
	Protocol             string
	Endpoint             string
	HeartbeatFrequencyMs int64
	ScriptInject         string
}

func writeTrackerScript(w http.ResponseWriter, vars scriptVars) error {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if err := trackerScriptTemplate.Execute(w, vars); err != nil {
		return fmt.Errorf("render tracker script: %w", err)
	}
	return nil
}

func writeDNTScript(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if err := dntScriptTemplate.Execute(w, nil); err != nil {
		return fmt.Errorf("render dnt script: %w", err)
	}
	return nil
}
