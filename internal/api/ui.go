package api

import (
	"net/http"
)

// stageUIHTML draws the stage on a canvas and tails the live event stream.
// Sprite positions come from /stage, refreshed whenever a stage event arrives.
const stageUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Sentient Blocks - Stage</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: monospace;
            background: #1a1a2e;
            color: #eee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        header {
            background: #16213e;
            padding: 12px 20px;
            border-bottom: 1px solid #0f3460;
            display: flex;
            justify-content: space-between;
            align-items: center;
            gap: 12px;
        }
        header h1 { font-size: 16px; font-weight: normal; flex: 1; }
        button {
            font-family: monospace;
            background: #0f3460;
            color: #eee;
            border: 1px solid #533483;
            border-radius: 4px;
            padding: 4px 12px;
            cursor: pointer;
        }
        button:hover { background: #533483; }
        #status, #run {
            padding: 4px 10px;
            border-radius: 4px;
            font-size: 12px;
        }
        .connected, .running { background: #1b4332; color: #95d5b2; }
        .disconnected, .stopped { background: #7f1d1d; color: #fca5a5; }
        .connecting { background: #78350f; color: #fcd34d; }
        main { flex: 1; display: flex; overflow: hidden; }
        #stage-wrap { padding: 16px; }
        canvas { background: #fff; border: 1px solid #0f3460; }
        #events { flex: 1; overflow-y: auto; padding: 10px; }
        .event {
            padding: 6px 10px;
            margin-bottom: 4px;
            background: #16213e;
            border-left: 3px solid #0f3460;
            border-radius: 4px;
            font-size: 12px;
        }
        .event.warning { border-left-color: #f59e0b; }
        .event.error { border-left-color: #ef4444; }
        .ts { color: #888; margin-right: 8px; }
    </style>
</head>
<body>
    <header>
        <h1>Sentient Blocks</h1>
        <span id="run" class="stopped">stopped</span>
        <button id="start">Start</button>
        <button id="stop">Stop</button>
        <span id="status" class="connecting">connecting</span>
    </header>
    <main>
        <div id="stage-wrap"><canvas id="stage" width="480" height="360"></canvas></div>
        <div id="events"></div>
    </main>
    <script>
        const canvas = document.getElementById('stage');
        const ctx = canvas.getContext('2d');
        const eventsEl = document.getElementById('events');
        const statusEl = document.getElementById('status');
        const runEl = document.getElementById('run');
        const colors = ['#4c97ff', '#ff8c1a', '#59c059', '#9966ff', '#ff6680'];
        let refreshPending = false;

        function draw(st) {
            const w = st.width || 480, h = st.height || 360;
            canvas.width = w;
            canvas.height = h;
            ctx.clearRect(0, 0, w, h);
            runEl.textContent = st.running ? 'running' : 'stopped';
            runEl.className = st.running ? 'running' : 'stopped';
            st.sprites.forEach((sp, i) => {
                const sw = (sp.width || 50) * sp.scale / 100;
                const sh = (sp.height || 50) * sp.scale / 100;
                const cx = w / 2 + sp.x, cy = h / 2 - sp.y;
                ctx.save();
                ctx.translate(cx, cy);
                ctx.rotate((90 - sp.direction) * Math.PI / 180);
                ctx.fillStyle = colors[i % colors.length];
                ctx.globalAlpha = sp.id === st.selected ? 1 : 0.8;
                ctx.fillRect(-sw / 2, -sh / 2, sw, sh);
                ctx.restore();
                ctx.fillStyle = '#000';
                ctx.font = '11px monospace';
                ctx.fillText(sp.id, cx - sw / 2, cy + sh / 2 + 12);
                if (sp.message) {
                    ctx.fillText(sp.message, cx - sw / 2, cy - sh / 2 - 6);
                }
            });
        }

        function refresh() {
            if (refreshPending) return;
            refreshPending = true;
            requestAnimationFrame(() => {
                fetch('/stage').then(r => r.json()).then(draw).catch(() => {}).finally(() => {
                    refreshPending = false;
                });
            });
        }

        function logEvent(e) {
            if (e.event === 'sprite.updated') return;
            const div = document.createElement('div');
            div.className = 'event ' + (e.level || 'info');
            const ts = document.createElement('span');
            ts.className = 'ts';
            ts.textContent = (e.ts || '').slice(11, 23);
            div.appendChild(ts);
            div.appendChild(document.createTextNode(e.event + ' ' + JSON.stringify(e.fields || {})));
            eventsEl.prepend(div);
            while (eventsEl.children.length > 200) eventsEl.lastChild.remove();
        }

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(proto + '//' + location.host + '/ws/events');
            statusEl.textContent = 'connecting';
            statusEl.className = 'connecting';
            ws.onopen = () => {
                statusEl.textContent = 'connected';
                statusEl.className = 'connected';
                refresh();
            };
            ws.onmessage = (msg) => {
                const e = JSON.parse(msg.data);
                logEvent(e);
                refresh();
            };
            ws.onclose = () => {
                statusEl.textContent = 'disconnected';
                statusEl.className = 'disconnected';
                setTimeout(connect, 2000);
            };
        }

        document.getElementById('start').onclick = () => fetch('/run/start', {method: 'POST'});
        document.getElementById('stop').onclick = () => fetch('/run/stop', {method: 'POST'});

        connect();
    </script>
</body>
</html>
`

func uiHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(stageUIHTML))
}
