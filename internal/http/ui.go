package http

import nethttp "net/http"

func dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Status Panel</title>
  <style>
    :root {
      --brand: #0e5d8f;
      --brand-2: #0971b2;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }

    header {
      background: linear-gradient(to right, var(--brand) 0, var(--brand-2) 100%);
      border-bottom: 1px solid #0b4e79;
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
    }

    .container {
      margin: 0 auto;
      padding: 0 15px;
      max-width: 720px;
    }

    .header-inner {
      min-height: 60px;
      display: flex;
      align-items: center;
      justify-content: space-between;
    }

    .navbar-brand { color: #fff; font-size: 20px; font-weight: 300; }
    .navbar-brand strong { font-weight: 600; }
    .navbar-note { color: rgba(255, 255, 255, 0.88); font-size: 12px; }

    main { padding: 18px 0 32px; }

    .panel {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 4px;
      box-shadow: 0 1px 1px rgba(0, 0, 0, 0.05);
    }

    .panel-heading {
      padding: 10px 15px;
      border-bottom: 1px solid var(--line);
      background: #f0f0f0;
      font-weight: 600;
    }

    .panel-body { padding: 15px; }

    .row { display: flex; align-items: center; gap: 10px; margin-bottom: 12px; }
    .row label { width: 110px; color: var(--muted); }

    input[type="text"] {
      padding: 6px 10px;
      border: 1px solid #ccc;
      border-radius: 3px;
      width: 120px;
    }

    button {
      padding: 6px 12px;
      border: 1px solid var(--brand);
      border-radius: 3px;
      background: var(--brand-2);
      color: #fff;
      cursor: pointer;
    }

    #server-status {
      display: inline-block;
      min-width: 36px;
      padding: 2px 8px;
      border-radius: 3px;
      text-align: center;
    }

    #server-status.success { background: var(--ok-bg); color: var(--ok-text); }
    #server-status.error { background: var(--bad-bg); color: var(--bad-text); }

    .conn { font-size: 12px; color: var(--muted); margin-top: 10px; }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="navbar-brand"><strong>Status</strong> Panel</div>
      <div class="navbar-note">local server monitor</div>
    </div>
  </header>
  <main>
    <div class="container">
      <div class="panel">
        <div class="panel-heading">Local server</div>
        <div class="panel-body">
          <div class="row">
            <label for="server-port">Port</label>
            <input type="text" id="server-port" value="8080" />
            <button type="button" id="save-port">Save</button>
          </div>
          <div class="row">
            <label>Datasite</label>
            <span id="metadata-datasite"></span>
          </div>
          <div class="row">
            <label>Status</label>
            <span id="server-status"></span>
          </div>
          <div class="conn" id="conn-state">connecting</div>
        </div>
      </div>
    </div>
  </main>
  <script>
    (function () {
      const api = '/api/v1/panel';
      const portInput = document.getElementById('server-port');

      function apply(el) {
        const node = document.getElementById(el.id);
        if (!node) return;
        if (node.tagName === 'INPUT') {
          if (document.activeElement !== node) node.value = el.value;
        } else {
          node.textContent = el.text;
        }
        node.className = (el.classes || []).join(' ');
      }

      function applyAll(list) {
        (list || []).forEach(apply);
      }

      let latestSeq = 0;

      // A response applies only if no newer request has been sent since.
      function post(path, body) {
        const seq = ++latestSeq;
        return fetch(api + path, {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: body === undefined ? '{}' : JSON.stringify(body)
        })
          .then(function (res) { return res.json(); })
          .then(function (data) {
            if (seq === latestSeq) applyAll(data.elements);
          })
          .catch(function () {});
      }

      function connect() {
        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + api + '/ws');
        const state = document.getElementById('conn-state');
        ws.onopen = function () { state.textContent = 'live'; };
        ws.onmessage = function (ev) {
          const msg = JSON.parse(ev.data);
          if (msg.type === 'snapshot') applyAll(msg.elements);
          if (msg.type === 'element' && msg.element) apply(msg.element);
        };
        ws.onclose = function () {
          state.textContent = 'reconnecting';
          setTimeout(connect, 2000);
        };
      }

      document.addEventListener('DOMContentLoaded', function () {
        connect();
        post('/init');
        portInput.addEventListener('input', function () {
          post('/port/input', { port: portInput.value });
        });
        document.getElementById('save-port').addEventListener('click', function () {
          post('/port', { port: portInput.value });
        });
      });
    })();
  </script>
</body>
</html>
`
